package infra_dynamo_session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/humanbelnik/gamenight/internal/model"
)

const (
	attrPK      = "PK"
	attrSK      = "SK"
	attrTTL     = "ttl"
	attrVersion = "version"

	skMeta = "META"

	condNew        = "attribute_not_exists(PK)"
	condExists     = "attribute_exists(PK)"
	condUnclaimed  = "#claimed = :false"
	condOpen       = "#status = :open"
	condExistsOpen = condExists + " AND " + condOpen
	condNewGame    = "attribute_not_exists(id)"
	condNewUser    = "attribute_not_exists(uid)"
	condVersion    = "#version = :version"
	condNoVersion  = "attribute_not_exists(#version)"

	maxTransactItems = 100
	maxBatchWrite    = 25
	maxBatchGet      = 100
	maxBatchTries    = 5
	maxUpdateTries   = 5
)

var skPrefix = map[model.Collection]string{
	model.CollectionParticipants:      "PART#",
	model.CollectionMembers:           "MEMBER#",
	model.CollectionSessionGames:      "GAME#",
	model.CollectionSharedPreferences: "SPREF#",
	model.CollectionGuestPreferences:  "GPREF#",
}

var (
	errUnprocessed  = errors.New("dynamodb left items unprocessed")
	errStaleVersion = errors.New("session document changed since it was read")
)

// API is the part of the DynamoDB client the store uses.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type Tables struct {
	Sessions string
	Catalog  string
	Users    string
}

// Driver keeps one session per partition: the session document under
// SK=META and every child document under a collection prefix. Writes are
// optimistic; guards become condition expressions on the transaction. The
// session document carries a version number, so a rewrite of it only lands
// on the copy it was computed from.
type Driver struct {
	client     API
	tables     Tables
	newBackOff func() backoff.BackOff
}

func New(
	client API,
	tables Tables,
) *Driver {
	return &Driver{
		client: client,
		tables: tables,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
	}
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func encode(v any) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMapWithOptions(v, func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
}

func decode(item map[string]types.AttributeValue, v any) error {
	return attributevalue.UnmarshalMapWithOptions(item, v, func(o *attributevalue.DecoderOptions) {
		o.TagKey = "json"
	})
}

func str(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

func key(sessionID string, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: str(sessionPK(sessionID)),
		attrSK: str(sk),
	}
}

func (d *Driver) item(agg *model.Aggregate, sk string, v any) (map[string]types.AttributeValue, error) {
	item, err := encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", sk, err)
	}
	item[attrPK] = str(sessionPK(agg.Session.ID))
	item[attrSK] = str(sk)
	item[attrTTL] = &types.AttributeValueMemberN{Value: strconv.FormatInt(agg.Session.ExpiresAt.Unix(), 10)}
	return item, nil
}

func childDoc(agg *model.Aggregate, col model.Collection, k string) (any, bool) {
	switch col {
	case model.CollectionParticipants:
		v, ok := agg.Participants[k]
		return v, ok
	case model.CollectionMembers:
		v, ok := agg.Members[k]
		return v, ok
	case model.CollectionSessionGames:
		v, ok := agg.Games[k]
		return v, ok
	case model.CollectionSharedPreferences:
		v, ok := agg.SharedPreferences[k]
		return v, ok
	case model.CollectionGuestPreferences:
		v, ok := agg.GuestPreferences[k]
		return v, ok
	}
	return nil, false
}

func (d *Driver) Create(ctx context.Context, agg *model.Aggregate, catalog []model.SharedGame) (int, error) {
	created, err := d.putCatalog(ctx, catalog)
	if err != nil {
		return 0, err
	}

	muts := []model.Mutation{{Op: model.OpPut, Collection: model.CollectionSessions, Key: agg.Session.ID, Guard: model.GuardAbsent}}
	for _, col := range model.ChildCollections {
		for _, k := range childKeys(agg, col) {
			muts = append(muts, model.Mutation{Op: model.OpPut, Collection: col, Key: k})
		}
	}
	if err := d.transact(ctx, agg, muts, 0); err != nil {
		return 0, err
	}
	return created, nil
}

// putCatalog adds the games that are not in the catalog yet. It runs before
// the session transaction; a catalog entry never refers back to a session.
func (d *Driver) putCatalog(ctx context.Context, catalog []model.SharedGame) (int, error) {
	created := 0
	for _, g := range catalog {
		item, err := encode(g)
		if err != nil {
			return 0, err
		}
		_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(d.tables.Catalog),
			Item:                item,
			ConditionExpression: aws.String(condNewGame),
		})
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			continue
		}
		if err != nil {
			return 0, err
		}
		created++
	}
	return created, nil
}

func (d *Driver) Load(ctx context.Context, sessionID string) (*model.Aggregate, error) {
	agg, _, err := d.load(ctx, sessionID)
	return agg, err
}

// load also returns the version of the session document it read.
func (d *Driver) load(ctx context.Context, sessionID string) (*model.Aggregate, int64, error) {
	items, err := d.queryAll(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}

	var (
		agg     *model.Aggregate
		version int64
	)
	for _, it := range items {
		if skOf(it) != skMeta {
			continue
		}
		var s model.Session
		if err := decode(it, &s); err != nil {
			return nil, 0, fmt.Errorf("decode session %s: %w", sessionID, err)
		}
		if version, err = versionOf(it); err != nil {
			return nil, 0, fmt.Errorf("decode session %s: %w", sessionID, err)
		}
		agg = model.NewAggregate(s)
	}
	if agg == nil {
		return nil, 0, model.ErrNotFound
	}

	for _, it := range items {
		if err := putChild(agg, it); err != nil {
			return nil, 0, err
		}
	}
	return agg, version, nil
}

// versionOf is zero for documents written before versioning.
func versionOf(item map[string]types.AttributeValue) (int64, error) {
	v, ok := item[attrVersion].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(v.Value, 10, 64)
}

func skOf(item map[string]types.AttributeValue) string {
	if v, ok := item[attrSK].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func putChild(agg *model.Aggregate, it map[string]types.AttributeValue) error {
	sk := skOf(it)
	var err error
	switch {
	case strings.HasPrefix(sk, skPrefix[model.CollectionParticipants]):
		v := new(model.Participant)
		if err = decode(it, v); err == nil {
			agg.Participants[strings.TrimPrefix(sk, skPrefix[model.CollectionParticipants])] = v
		}
	case strings.HasPrefix(sk, skPrefix[model.CollectionMembers]):
		v := new(model.Member)
		if err = decode(it, v); err == nil {
			agg.Members[strings.TrimPrefix(sk, skPrefix[model.CollectionMembers])] = v
		}
	case strings.HasPrefix(sk, skPrefix[model.CollectionSessionGames]):
		v := new(model.SessionGame)
		if err = decode(it, v); err == nil {
			agg.Games[strings.TrimPrefix(sk, skPrefix[model.CollectionSessionGames])] = v
		}
	case strings.HasPrefix(sk, skPrefix[model.CollectionSharedPreferences]):
		v := new(model.SharedPreference)
		if err = decode(it, v); err == nil {
			agg.SharedPreferences[strings.TrimPrefix(sk, skPrefix[model.CollectionSharedPreferences])] = v
		}
	case strings.HasPrefix(sk, skPrefix[model.CollectionGuestPreferences]):
		v := new(model.GuestPreference)
		if err = decode(it, v); err == nil {
			agg.GuestPreferences[strings.TrimPrefix(sk, skPrefix[model.CollectionGuestPreferences])] = v
		}
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", sk, err)
	}
	return nil
}

func (d *Driver) queryAll(ctx context.Context, sessionID string) ([]map[string]types.AttributeValue, error) {
	p := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Sessions),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": str(sessionPK(sessionID)),
		},
		ConsistentRead: aws.Bool(true),
	})

	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
	}
	return items, nil
}

// Update reads the partition, runs fn and commits the recorded mutations
// in one TransactWriteItems call. A failed condition maps back to the guard
// of the mutation that carried it. When the session document moved on
// between the read and the commit, fn runs again on a fresh read.
func (d *Driver) Update(ctx context.Context, sessionID string, fn func(agg *model.Aggregate) error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		agg, version, err := d.load(ctx, sessionID)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if err := fn(agg); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		muts := agg.Mutations()
		if len(muts) == 0 {
			return struct{}{}, nil
		}
		err = d.transact(ctx, agg, muts, version)
		if err != nil && !errors.Is(err, errStaleVersion) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(d.newBackOff()), backoff.WithMaxTries(maxUpdateTries))
	return err
}

func (d *Driver) transact(ctx context.Context, agg *model.Aggregate, muts []model.Mutation, version int64) error {
	if len(muts) > maxTransactItems {
		return fmt.Errorf("transaction of %d items exceeds the limit of %d", len(muts), maxTransactItems)
	}

	items := make([]types.TransactWriteItem, 0, len(muts))
	for _, m := range muts {
		it, err := d.transactItem(agg, m, version)
		if err != nil {
			return err
		}
		items = append(items, it)
	}

	_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for i, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) != "ConditionalCheckFailed" || i >= len(muts) {
				continue
			}
			if muts[i].Collection == model.CollectionSessions && muts[i].Op == model.OpPut {
				return sessionConflict(muts[i], reason.Item)
			}
			if conflict := muts[i].Conflict(); conflict != nil {
				return conflict
			}
			return model.ErrNotFound
		}
	}
	return err
}

// sessionConflict tells a guard failure on the session document apart from
// a version mismatch, using the document as it was at commit time.
func sessionConflict(m model.Mutation, current map[string]types.AttributeValue) error {
	if m.Guard == model.GuardAbsent {
		return m.Conflict()
	}
	if len(current) == 0 {
		return model.ErrNotFound
	}
	if m.Guard == model.GuardSessionOpen {
		if s, ok := current["status"].(*types.AttributeValueMemberS); !ok || s.Value != string(model.StatusOpen) {
			return model.ErrSessionNotOpen
		}
	}
	return errStaleVersion
}

func (d *Driver) transactItem(agg *model.Aggregate, m model.Mutation, version int64) (types.TransactWriteItem, error) {
	table := aws.String(d.tables.Sessions)

	if m.Collection == model.CollectionSessions {
		if m.Op == model.OpCheck {
			return types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
				TableName:                 table,
				Key:                       key(agg.Session.ID, skMeta),
				ConditionExpression:       aws.String(condOpen),
				ExpressionAttributeNames:  map[string]string{"#status": "status"},
				ExpressionAttributeValues: map[string]types.AttributeValue{":open": str(string(model.StatusOpen))},
			}}, nil
		}

		item, err := d.item(agg, skMeta, agg.Session)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		item[attrVersion] = &types.AttributeValueMemberN{Value: strconv.FormatInt(version+1, 10)}
		put := &types.Put{TableName: table, Item: item}
		if m.Guard == model.GuardAbsent {
			put.ConditionExpression = aws.String(condNew)
			return types.TransactWriteItem{Put: put}, nil
		}

		names := map[string]string{"#version": attrVersion}
		values := map[string]types.AttributeValue{}
		cond := condExists
		if m.Guard == model.GuardSessionOpen {
			cond = condExistsOpen
			names["#status"] = "status"
			values[":open"] = str(string(model.StatusOpen))
		}
		if version == 0 {
			cond += " AND " + condNoVersion
		} else {
			cond += " AND " + condVersion
			values[":version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)}
		}
		put.ConditionExpression = aws.String(cond)
		put.ExpressionAttributeNames = names
		if len(values) > 0 {
			put.ExpressionAttributeValues = values
		}
		put.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
		return types.TransactWriteItem{Put: put}, nil
	}

	sk := skPrefix[m.Collection] + m.Key
	if m.Op == model.OpDelete {
		return types.TransactWriteItem{Delete: &types.Delete{TableName: table, Key: key(agg.Session.ID, sk)}}, nil
	}

	doc, ok := childDoc(agg, m.Collection, m.Key)
	if !ok {
		return types.TransactWriteItem{}, fmt.Errorf("no %s document %q to write", m.Collection, m.Key)
	}
	item, err := d.item(agg, sk, doc)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	put := &types.Put{TableName: table, Item: item}
	switch m.Guard {
	case model.GuardUnclaimed:
		put.ConditionExpression = aws.String(condUnclaimed)
		put.ExpressionAttributeNames = map[string]string{"#claimed": "claimed"}
		put.ExpressionAttributeValues = map[string]types.AttributeValue{":false": &types.AttributeValueMemberBOOL{Value: false}}
	case model.GuardAbsent:
		put.ConditionExpression = aws.String(condNew)
	}
	return types.TransactWriteItem{Put: put}, nil
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

// Delete removes children collection by collection in batches, then the
// session item. A crash midway leaves a session with fewer children, which
// a second Delete finishes.
func (d *Driver) Delete(ctx context.Context, sessionID string) error {
	items, err := d.queryAll(ctx, sessionID)
	if err != nil {
		return err
	}

	bySK := make(map[model.Collection][]string)
	found := false
	for _, it := range items {
		sk := skOf(it)
		if sk == skMeta {
			found = true
			continue
		}
		for col, prefix := range skPrefix {
			if strings.HasPrefix(sk, prefix) {
				bySK[col] = append(bySK[col], sk)
			}
		}
	}
	if !found {
		return model.ErrNotFound
	}

	var reqs []types.WriteRequest
	for _, col := range model.ChildCollections {
		for _, sk := range bySK[col] {
			reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key(sessionID, sk)}})
		}
	}
	for start := 0; start < len(reqs); start += maxBatchWrite {
		end := min(start+maxBatchWrite, len(reqs))
		if err := d.batchWrite(ctx, reqs[start:end]); err != nil {
			return err
		}
	}

	_, err = d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(d.tables.Sessions),
		Key:                 key(sessionID, skMeta),
		ConditionExpression: aws.String(condExists),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return model.ErrNotFound
	}
	return err
}

func (d *Driver) batchWrite(ctx context.Context, reqs []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{d.tables.Sessions: reqs}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if len(out.UnprocessedItems) > 0 {
			pending = out.UnprocessedItems
			return struct{}{}, errUnprocessed
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(d.newBackOff()), backoff.WithMaxTries(maxBatchTries))
	return err
}

func (d *Driver) CatalogGames(ctx context.Context, ids []string) ([]model.SharedGame, error) {
	byID := make(map[string]model.SharedGame, len(ids))
	for start := 0; start < len(ids); start += maxBatchGet {
		end := min(start+maxBatchGet, len(ids))
		if err := d.batchGet(ctx, ids[start:end], byID); err != nil {
			return nil, err
		}
	}

	out := make([]model.SharedGame, 0, len(byID))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (d *Driver) batchGet(ctx context.Context, ids []string, into map[string]model.SharedGame) error {
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, map[string]types.AttributeValue{"id": str(id)})
	}

	pending := map[string]types.KeysAndAttributes{d.tables.Catalog: {Keys: keys}}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		out, err := d.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		for _, it := range out.Responses[d.tables.Catalog] {
			var g model.SharedGame
			if err := decode(it, &g); err != nil {
				return struct{}{}, backoff.Permanent(err)
			}
			into[g.ID] = g
		}
		if len(out.UnprocessedKeys) > 0 {
			pending = out.UnprocessedKeys
			return struct{}{}, errUnprocessed
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(d.newBackOff()), backoff.WithMaxTries(maxBatchTries))
	return err
}

func (d *Driver) GetUser(ctx context.Context, uid string) (*model.User, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tables.Users),
		Key:            map[string]types.AttributeValue{"uid": str(uid)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var u model.User
	if err := decode(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *Driver) ProvisionUser(ctx context.Context, user model.User) error {
	item, err := encode(user)
	if err != nil {
		return err
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tables.Users),
		Item:                item,
		ConditionExpression: aws.String(condNewUser),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return model.ErrAlreadyExists
	}
	return err
}
