package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"github.com/shandysiswandi/posture/internal/pkg/instrument"
	"github.com/shandysiswandi/posture/internal/twofactor/entity"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefix = "twofactor:credential:"

	fieldSecret    = "secret"
	fieldEnabled   = "enabled"
	fieldUpdatedAt = "updated_at"
)

// clearScript rewrites an existing hash only, so clearing never creates a
// record for an identity that has none.
var clearScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'secret', '', 'enabled', '0', 'updated_at', ARGV[1])
return 1
`)

// Cache stores credential records as one redis hash per identity.
type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
	now    func() time.Time
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	if ins == nil {
		ins = instrument.NewNoop()
	}
	return &Cache{client: client, ins: ins, now: time.Now}
}

func key(identity string) string {
	return keyPrefix + identity
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("twofactor.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Cache) GetCredential(ctx context.Context, identity string) (_ *entity.Credential, err error) {
	ctx, span := c.startSpan(ctx, "GetCredential")
	defer func() { c.endSpan(span, err) }()

	fields, err := c.client.HGetAll(ctx, key(identity)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, goerror.ErrNotFound
	}

	cred := &entity.Credential{
		Identity: identity,
		Enabled:  fields[fieldEnabled] == "1",
	}
	if s := fields[fieldSecret]; s != "" {
		cred.Secret = []byte(s)
	}
	if ts, perr := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64); perr == nil {
		cred.UpdatedAt = time.Unix(ts, 0).UTC()
	}

	return cred, nil
}

func (c *Cache) SaveCredential(ctx context.Context, identity string, sealedSecret []byte) (err error) {
	ctx, span := c.startSpan(ctx, "SaveCredential")
	defer func() { c.endSpan(span, err) }()

	return c.client.HSet(ctx, key(identity),
		fieldSecret, sealedSecret,
		fieldEnabled, "1",
		fieldUpdatedAt, c.now().Unix(),
	).Err()
}

func (c *Cache) ClearCredential(ctx context.Context, identity string) (err error) {
	ctx, span := c.startSpan(ctx, "ClearCredential")
	defer func() { c.endSpan(span, err) }()

	return clearScript.Run(ctx, c.client, []string{key(identity)}, c.now().Unix()).Err()
}
