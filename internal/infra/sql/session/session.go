package infra_sql_session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/jmoiron/sqlx"
)

// Driver stores each aggregate as one sessions row plus one row per child
// document, keyed by (session_id, doc_key). Documents are JSON; the columns
// next to them exist only for the conditions checked inside transactions.
type Driver struct {
	db *sqlx.DB
}

func New(
	db *sqlx.DB,
) *Driver {
	return &Driver{db: db}
}

var tables = map[model.Collection]string{
	model.CollectionParticipants:      "participants",
	model.CollectionMembers:           "members",
	model.CollectionSessionGames:      "session_games",
	model.CollectionSharedPreferences: "shared_preferences",
	model.CollectionGuestPreferences:  "guest_preferences",
}

type sessionDTO struct {
	ID        string `db:"id"`
	HostUID   string `db:"host_uid"`
	Status    string `db:"status"`
	ExpiresAt int64  `db:"expires_at"`
	Doc       string `db:"doc"`
}

type childDTO struct {
	Key string `db:"doc_key"`
	Doc string `db:"doc"`
}

func (d *Driver) isPostgres() bool {
	return d.db.DriverName() == "postgres"
}

func newSessionDTO(s model.Session) (sessionDTO, error) {
	doc, err := json.Marshal(s)
	if err != nil {
		return sessionDTO{}, err
	}
	return sessionDTO{
		ID:        s.ID,
		HostUID:   s.HostUID,
		Status:    string(s.StoredStatus),
		ExpiresAt: s.ExpiresAt.UnixMilli(),
		Doc:       string(doc),
	}, nil
}

func (d *Driver) Create(ctx context.Context, agg *model.Aggregate, catalog []model.SharedGame) (int, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	row, err := newSessionDTO(agg.Session)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO sessions (id, host_uid, status, expires_at, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), row.ID, row.HostUID, row.Status, row.ExpiresAt, row.Doc)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, model.ErrAlreadyExists
	}

	for _, col := range model.ChildCollections {
		for _, key := range childKeys(agg, col) {
			if err := d.upsertChild(ctx, tx, agg, col, key); err != nil {
				return 0, err
			}
		}
	}

	created, err := d.insertCatalog(ctx, tx, catalog)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

func (d *Driver) insertCatalog(ctx context.Context, tx *sqlx.Tx, catalog []model.SharedGame) (int, error) {
	created := 0
	for _, g := range catalog {
		doc, err := json.Marshal(g)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO shared_games (id, created_at, doc)
			VALUES (?, ?, ?)
			ON CONFLICT (id) DO NOTHING
		`), g.ID, g.CreatedAt.UnixMilli(), string(doc))
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		created += int(n)
	}
	return created, nil
}

func (d *Driver) Load(ctx context.Context, sessionID string) (*model.Aggregate, error) {
	return d.load(ctx, d.db, sessionID, false)
}

func (d *Driver) load(ctx context.Context, q sqlx.QueryerContext, sessionID string, lock bool) (*model.Aggregate, error) {
	query := `SELECT id, host_uid, status, expires_at, doc FROM sessions WHERE id = ?`
	if lock && d.isPostgres() {
		query += ` FOR UPDATE`
	}

	var row sessionDTO
	if err := sqlx.GetContext(ctx, q, &row, d.db.Rebind(query), sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	var s model.Session
	if err := json.Unmarshal([]byte(row.Doc), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	agg := model.NewAggregate(s)

	err := errors.Join(
		loadChildren(ctx, d, q, model.CollectionParticipants, sessionID, func(key string, v *model.Participant) { agg.Participants[key] = v }),
		loadChildren(ctx, d, q, model.CollectionMembers, sessionID, func(key string, v *model.Member) { agg.Members[key] = v }),
		loadChildren(ctx, d, q, model.CollectionSessionGames, sessionID, func(key string, v *model.SessionGame) { agg.Games[key] = v }),
		loadChildren(ctx, d, q, model.CollectionSharedPreferences, sessionID, func(key string, v *model.SharedPreference) { agg.SharedPreferences[key] = v }),
		loadChildren(ctx, d, q, model.CollectionGuestPreferences, sessionID, func(key string, v *model.GuestPreference) { agg.GuestPreferences[key] = v }),
	)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func loadChildren[T any](ctx context.Context, d *Driver, q sqlx.QueryerContext, col model.Collection, sessionID string, put func(key string, v *T)) error {
	var rows []childDTO
	query := fmt.Sprintf(`SELECT doc_key, doc FROM %s WHERE session_id = ?`, tables[col])
	if err := sqlx.SelectContext(ctx, q, &rows, d.db.Rebind(query), sessionID); err != nil {
		return err
	}
	for _, r := range rows {
		v := new(T)
		if err := json.Unmarshal([]byte(r.Doc), v); err != nil {
			return fmt.Errorf("decode %s/%s: %w", col, r.Key, err)
		}
		put(r.Key, v)
	}
	return nil
}

// Update locks the session row (postgres) or holds the only connection
// (sqlite), runs fn on the loaded aggregate and replays its mutations with
// their guards as conditional statements.
func (d *Driver) Update(ctx context.Context, sessionID string, fn func(agg *model.Aggregate) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	agg, err := d.load(ctx, tx, sessionID, true)
	if err != nil {
		return err
	}
	if err := fn(agg); err != nil {
		return err
	}

	for _, m := range agg.Mutations() {
		if err := d.apply(ctx, tx, agg, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *Driver) apply(ctx context.Context, tx *sqlx.Tx, agg *model.Aggregate, m model.Mutation) error {
	if m.Collection == model.CollectionSessions {
		return d.applySession(ctx, tx, agg, m)
	}

	table := tables[m.Collection]
	switch m.Op {
	case model.OpDelete:
		_, err := tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE session_id = ? AND doc_key = ?`, table)),
			agg.Session.ID, m.Key)
		return err
	case model.OpCheck:
		return nil
	}

	switch m.Guard {
	case model.GuardUnclaimed:
		return d.claimParticipant(ctx, tx, agg, m)
	case model.GuardAbsent:
		return d.insertAbsent(ctx, tx, agg, m)
	}
	return d.upsertChild(ctx, tx, agg, m.Collection, m.Key)
}

func (d *Driver) applySession(ctx context.Context, tx *sqlx.Tx, agg *model.Aggregate, m model.Mutation) error {
	if m.Op == model.OpCheck {
		var status string
		if err := tx.GetContext(ctx, &status, tx.Rebind(`SELECT status FROM sessions WHERE id = ?`), agg.Session.ID); err != nil {
			return err
		}
		if model.SessionStatus(status) != model.StatusOpen {
			return m.Conflict()
		}
		return nil
	}

	row, err := newSessionDTO(agg.Session)
	if err != nil {
		return err
	}
	query := `UPDATE sessions SET status = ?, expires_at = ?, doc = ? WHERE id = ?`
	args := []any{row.Status, row.ExpiresAt, row.Doc, row.ID}
	if m.Guard == model.GuardSessionOpen {
		query += ` AND status = ?`
		args = append(args, string(model.StatusOpen))
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if m.Guard != model.GuardNone {
			return m.Conflict()
		}
		return model.ErrNotFound
	}
	return nil
}

func (d *Driver) claimParticipant(ctx context.Context, tx *sqlx.Tx, agg *model.Aggregate, m model.Mutation) error {
	p, ok := agg.Participants[m.Key]
	if !ok {
		return model.ErrNotFound
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE participants SET claimed = ?, doc = ?
		WHERE session_id = ? AND doc_key = ? AND claimed = ?
	`), p.Claimed, string(doc), agg.Session.ID, m.Key, false)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return m.Conflict()
	}
	return nil
}

func (d *Driver) insertAbsent(ctx context.Context, tx *sqlx.Tx, agg *model.Aggregate, m model.Mutation) error {
	doc, claimed, err := childDoc(agg, m.Collection, m.Key)
	if err != nil {
		return err
	}

	var res sql.Result
	if m.Collection == model.CollectionParticipants {
		res, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO participants (session_id, doc_key, claimed, doc) VALUES (?, ?, ?, ?)
			ON CONFLICT (session_id, doc_key) DO NOTHING
		`), agg.Session.ID, m.Key, claimed, doc)
	} else {
		res, err = tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf(`
			INSERT INTO %s (session_id, doc_key, doc) VALUES (?, ?, ?)
			ON CONFLICT (session_id, doc_key) DO NOTHING
		`, tables[m.Collection])), agg.Session.ID, m.Key, doc)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return m.Conflict()
	}
	return nil
}

func (d *Driver) upsertChild(ctx context.Context, tx *sqlx.Tx, agg *model.Aggregate, col model.Collection, key string) error {
	doc, claimed, err := childDoc(agg, col, key)
	if err != nil {
		return err
	}

	if col == model.CollectionParticipants {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO participants (session_id, doc_key, claimed, doc) VALUES (?, ?, ?, ?)
			ON CONFLICT (session_id, doc_key) DO UPDATE SET claimed = excluded.claimed, doc = excluded.doc
		`), agg.Session.ID, key, claimed, doc)
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf(`
		INSERT INTO %s (session_id, doc_key, doc) VALUES (?, ?, ?)
		ON CONFLICT (session_id, doc_key) DO UPDATE SET doc = excluded.doc
	`, tables[col])), agg.Session.ID, key, doc)
	return err
}

func childKeys(agg *model.Aggregate, col model.Collection) []string {
	var keys []string
	switch col {
	case model.CollectionParticipants:
		for k := range agg.Participants {
			keys = append(keys, k)
		}
	case model.CollectionMembers:
		for k := range agg.Members {
			keys = append(keys, k)
		}
	case model.CollectionSessionGames:
		for k := range agg.Games {
			keys = append(keys, k)
		}
	case model.CollectionSharedPreferences:
		for k := range agg.SharedPreferences {
			keys = append(keys, k)
		}
	case model.CollectionGuestPreferences:
		for k := range agg.GuestPreferences {
			keys = append(keys, k)
		}
	}
	return keys
}

// childDoc encodes the current state of one child document.
func childDoc(agg *model.Aggregate, col model.Collection, key string) (string, bool, error) {
	var (
		v       any
		ok      bool
		claimed bool
	)
	switch col {
	case model.CollectionParticipants:
		var p *model.Participant
		if p, ok = agg.Participants[key]; ok {
			v, claimed = p, p.Claimed
		}
	case model.CollectionMembers:
		v, ok = agg.Members[key]
	case model.CollectionSessionGames:
		v, ok = agg.Games[key]
	case model.CollectionSharedPreferences:
		v, ok = agg.SharedPreferences[key]
	case model.CollectionGuestPreferences:
		v, ok = agg.GuestPreferences[key]
	}
	if !ok {
		return "", false, fmt.Errorf("no %s document %q to write", col, key)
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return "", false, err
	}
	return string(doc), claimed, nil
}

func (d *Driver) Delete(ctx context.Context, sessionID string) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := d.load(ctx, tx, sessionID, true); err != nil {
		return err
	}
	for _, col := range model.ChildCollections {
		query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = ?`, tables[col])
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), sessionID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM sessions WHERE id = ?`), sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *Driver) CatalogGames(ctx context.Context, ids []string) ([]model.SharedGame, error) {
	if len(ids) == 0 {
		return []model.SharedGame{}, nil
	}

	query, args, err := sqlx.In(`SELECT doc FROM shared_games WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var docs []string
	if err := d.db.SelectContext(ctx, &docs, d.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	byID := make(map[string]model.SharedGame, len(docs))
	for _, doc := range docs {
		var g model.SharedGame
		if err := json.Unmarshal([]byte(doc), &g); err != nil {
			return nil, err
		}
		byID[g.ID] = g
	}
	out := make([]model.SharedGame, 0, len(byID))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (d *Driver) GetUser(ctx context.Context, uid string) (*model.User, error) {
	var doc string
	err := d.db.GetContext(ctx, &doc, d.db.Rebind(`SELECT doc FROM users WHERE uid = ?`), uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var u model.User
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *Driver) ProvisionUser(ctx context.Context, user model.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, d.db.Rebind(`
		INSERT INTO users (uid, invited, created_at, doc) VALUES (?, ?, ?, ?)
		ON CONFLICT (uid) DO NOTHING
	`), user.UID, user.Invited, user.CreatedAt.UnixMilli(), string(doc))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrAlreadyExists
	}
	return nil
}

// PutUser replaces the account record. Used to seed invites.
func (d *Driver) PutUser(ctx context.Context, user model.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, d.db.Rebind(`
		INSERT INTO users (uid, invited, created_at, doc) VALUES (?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET invited = excluded.invited, doc = excluded.doc
	`), user.UID, user.Invited, user.CreatedAt.UnixMilli(), string(doc))
	return err
}
