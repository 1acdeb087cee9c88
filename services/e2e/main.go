package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/humanbelnik/gamenight/internal/client"
	"github.com/humanbelnik/gamenight/internal/model"
	service_auth_token "github.com/humanbelnik/gamenight/internal/service/auth/token"
	"github.com/humanbelnik/gamenight/internal/service/validation"
)

func baseURL() string {
	if u := os.Getenv("E2E_BASE_URL"); u != "" {
		return u
	}
	switch os.Getenv("ENV") {
	case "CI":
		return "http://gamenight-app:8080"
	}
	return "http://localhost:8080"
}

func authSecret() string {
	if s := os.Getenv("E2E_AUTH_SECRET"); s != "" {
		return s
	}
	return "e2e-secret"
}

func main() {
	fmt.Println("Starting E2E scenario for the game night API...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := runScenario(ctx, baseURL(), authSecret(), func(format string, args ...any) {
		fmt.Printf(format+"\n", args...)
	}); err != nil {
		fmt.Printf("E2E scenario failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n All E2E checks passed!")
}

func waitForService(ctx context.Context, base string) bool {
	httpClient := &http.Client{Timeout: 5 * time.Second}

	maxRetries := 10
	for i := 0; i < maxRetries; i++ {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
		resp, err := httpClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
	return false
}

type logf func(format string, args ...any)

// runScenario walks one evening end to end: the host creates a session,
// a guest claims the named seat and submits picks, the host closes and
// deletes it, and the guest's watcher sees each change.
func runScenario(ctx context.Context, base, secret string, log logf) error {
	if !waitForService(ctx, base) {
		return fmt.Errorf("service at %s is not ready", base)
	}

	tokens := service_auth_token.New(secret, "gamenight")
	hostToken, err := tokens.Issue("e2e-host-"+time.Now().Format("150405.000"), time.Hour)
	if err != nil {
		return err
	}
	guestToken, err := tokens.Issue("e2e-guest-"+time.Now().Format("150405.000"), time.Hour)
	if err != nil {
		return err
	}

	hostAPI := client.NewAPI(base, client.WithToken(hostToken))
	host := client.NewService(hostAPI)
	guestAPI := client.NewAPI(base, client.WithToken(guestToken))
	guest := client.NewService(guestAPI)

	capacity := 3
	created, err := host.CreateSession(ctx, client.CreateSessionRequest{
		Title:           "E2E game night",
		ScheduledFor:    time.Now().Add(2 * time.Hour).UTC(),
		Capacity:        &capacity,
		HostDisplayName: "Host",
		ShareMode:       string(model.ShareModeDetailed),
		GameIDs:         []string{"e2e-azul", "e2e-catan"},
		Games: []model.SharedGame{
			{ID: "e2e-azul", Name: "Azul"},
			{ID: "e2e-catan", Name: "Catan"},
		},
		NamedParticipants: []client.NamedParticipant{{
			DisplayName: "Bob",
			Preferences: []model.PreferenceEntry{{GameID: "e2e-azul", IsTopPick: true}},
		}},
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	sessionID := created.SessionID
	log("Session created: %s (%d games uploaded)", sessionID, created.GamesUploaded)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	changes, err := client.NewPushWatcher(guestAPI).Watch(watchCtx, sessionID)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if p, err := next(ctx, changes); err != nil || p.Status != model.StatusOpen {
		return fmt.Errorf("initial status %q: %v", p.Status, err)
	}

	preview, err := guest.Preview(ctx, sessionID, true)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if len(preview.NamedSlots) != 1 {
		return fmt.Errorf("expected one named seat, got %d", len(preview.NamedSlots))
	}
	seat := preview.NamedSlots[0]

	claim, err := guest.Claim(ctx, sessionID, seat.DisplayName, seat.ParticipantID)
	if err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	log("Guest claimed %s (shared picks: %t)", claim.ParticipantID, claim.HasSharedPreferences)

	board := client.NewBoard([]string{"e2e-azul", "e2e-catan"}, nil)
	rank := 1
	if _, err := board.Apply("e2e-catan", validation.PreferenceUpdate{Rank: &rank}); err != nil {
		return err
	}
	if _, err := guest.SubmitBoard(ctx, sessionID, board, nil); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := guest.SetReady(ctx, sessionID); err != nil {
		return fmt.Errorf("ready: %w", err)
	}

	ready, err := host.ReadyPreferences(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("ready preferences: %w", err)
	}
	log("Host sees %d ready participants", len(ready))
	if len(ready) == 0 {
		return fmt.Errorf("guest missing from ready view")
	}

	pick := model.GamePick{GameID: "e2e-catan", Name: "Catan"}
	if _, err := host.SetSelectedGame(ctx, sessionID, pick); err != nil {
		return fmt.Errorf("select game: %w", err)
	}
	if _, err := host.Close(ctx, sessionID, &pick); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := waitFor(ctx, changes, func(p model.StatusProjection) bool { return p.Status == model.StatusClosed }); err != nil {
		return fmt.Errorf("watching close: %w", err)
	}
	log("Guest saw the session close")

	if err := host.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := waitFor(ctx, changes, func(p model.StatusProjection) bool { return p.Deleted }); err != nil {
		return fmt.Errorf("watching delete: %w", err)
	}
	log("Guest saw the session deleted")
	return nil
}

func next(ctx context.Context, ch <-chan model.StatusProjection) (model.StatusProjection, error) {
	select {
	case p, ok := <-ch:
		if !ok {
			return p, fmt.Errorf("change stream closed")
		}
		return p, nil
	case <-ctx.Done():
		return model.StatusProjection{}, ctx.Err()
	}
}

func waitFor(ctx context.Context, ch <-chan model.StatusProjection, match func(model.StatusProjection) bool) error {
	for {
		p, err := next(ctx, ch)
		if err != nil {
			return err
		}
		if match(p) {
			return nil
		}
	}
}
