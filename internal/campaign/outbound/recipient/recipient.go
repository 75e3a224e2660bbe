package recipient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/kvstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Conditional updates retry this many times when another request changed
// the same set in between.
const maxAttempts = 8

// ErrContention is returned when a conditional update keeps losing races.
var ErrContention = errors.New("recipient: too many concurrent updates")

// Store keeps recipient sets keyed by campaign token. Every read-modify-write
// is a compare-and-swap on the whole set, so concurrent prune and send calls
// on one token never interleave.
type Store struct {
	m   kvstore.Mapping
	ttl time.Duration
	ins instrument.Instrumentation
}

// New builds a Store over m. Entries expire ttl after their last write.
func New(m kvstore.Mapping, ttl time.Duration, ins instrument.Instrumentation) *Store {
	return &Store{m: m, ttl: ttl, ins: ins}
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("campaign.outbound.recipient").Start(ctx, name)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Create stores addrs under token.
func (s *Store) Create(ctx context.Context, token string, addrs []string) error {
	ctx, span := s.startSpan(ctx, "Create")
	defer span.End()
	span.SetAttributes(attribute.Int("recipient_count", len(addrs)))

	raw, err := json.Marshal(addrs)
	if err != nil {
		return fail(span, err)
	}

	if err := s.m.Put(ctx, token, raw, s.ttl); err != nil {
		if errors.Is(err, kvstore.ErrCapacity) {
			return fail(span, entity.ErrStoreFull)
		}
		return fail(span, err)
	}

	return nil
}

// Load returns the set under token, or goerror.ErrNotFound.
func (s *Store) Load(ctx context.Context, token string) ([]string, error) {
	ctx, span := s.startSpan(ctx, "Load")
	defer span.End()

	addrs, _, err := s.get(ctx, token)
	if err != nil {
		return nil, fail(span, err)
	}
	return addrs, nil
}

// Remove drops every occurrence of addrs from the set and returns what is
// left, in order. An emptied set is deleted.
func (s *Store) Remove(ctx context.Context, token string, addrs []string) ([]string, error) {
	ctx, span := s.startSpan(ctx, "Remove")
	defer span.End()

	for range maxAttempts {
		current, raw, err := s.get(ctx, token)
		if err != nil {
			return nil, fail(span, err)
		}

		remaining := lo.Without(current, addrs...)
		if len(remaining) == len(current) {
			return current, nil
		}

		var ok bool
		if len(remaining) == 0 {
			ok, err = s.m.CompareAndRemove(ctx, token, raw)
		} else {
			var next []byte
			if next, err = json.Marshal(remaining); err != nil {
				return nil, fail(span, err)
			}
			ok, err = s.m.CompareAndSwap(ctx, token, raw, next, s.ttl)
		}
		if err != nil {
			return nil, fail(span, translate(err))
		}
		if ok {
			span.SetAttributes(attribute.Int("remaining", len(remaining)))
			return remaining, nil
		}
	}

	return nil, fail(span, ErrContention)
}

// Take removes the set under token and returns it. Of two concurrent
// callers only one gets the set; the other sees goerror.ErrNotFound.
func (s *Store) Take(ctx context.Context, token string) ([]string, error) {
	ctx, span := s.startSpan(ctx, "Take")
	defer span.End()

	for range maxAttempts {
		addrs, raw, err := s.get(ctx, token)
		if err != nil {
			return nil, fail(span, err)
		}

		ok, err := s.m.CompareAndRemove(ctx, token, raw)
		if err != nil {
			return nil, fail(span, translate(err))
		}
		if ok {
			return addrs, nil
		}
	}

	return nil, fail(span, ErrContention)
}

// Discard deletes the set under token if there is one.
func (s *Store) Discard(ctx context.Context, token string) error {
	ctx, span := s.startSpan(ctx, "Discard")
	defer span.End()

	if err := s.m.Remove(ctx, token); err != nil {
		return fail(span, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, token string) ([]string, []byte, error) {
	raw, err := s.m.Get(ctx, token)
	if err != nil {
		return nil, nil, translate(err)
	}

	var addrs []string
	if err := json.Unmarshal(raw, &addrs); err != nil {
		return nil, nil, fmt.Errorf("recipient: decode set: %w", err)
	}
	return addrs, raw, nil
}

func translate(err error) error {
	if errors.Is(err, kvstore.ErrNotFound) {
		return goerror.ErrNotFound
	}
	return err
}
