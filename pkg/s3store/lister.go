package s3store

import (
	"context"
	"slices"
	"strings"

	"github.com/mfaulds/ct-ingest/internal/logctx"
	"github.com/mfaulds/ct-ingest/pkg/cloudtrail"
)

// Lister enumerates compressed CloudTrail log objects for an account,
// region, and date range.
type Lister struct {
	store   ObjectStore
	backoff Backoff
}

// NewLister creates a lister over the given store.
func NewLister(store ObjectStore, backoff Backoff) *Lister {
	if backoff.MaxAttempts <= 0 {
		backoff = DefaultBackoff()
	}
	return &Lister{store: store, backoff: backoff}
}

// List returns every log object under the account/region day prefixes in the
// range, sorted by date then key. A day with no objects contributes nothing.
// Remote failures are retried with backoff; exhaustion surfaces a *ListError,
// which is fatal for the run.
func (l *Lister) List(ctx context.Context, account, region string, r cloudtrail.DateRange) ([]cloudtrail.ObjectRef, error) {
	log := logctx.FromContext(ctx)

	var refs []cloudtrail.ObjectRef
	for _, day := range r.Days() {
		prefix := cloudtrail.DayPrefix(account, region, day)

		dayRefs, err := l.listPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}

		log.Debug().
			Str("prefix", prefix).
			Int("objects", len(dayRefs)).
			Msg("listed day prefix")
		refs = append(refs, dayRefs...)
	}

	slices.SortFunc(refs, func(a, b cloudtrail.ObjectRef) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})

	log.Info().
		Str("range", r.String()).
		Int("objects", len(refs)).
		Msg("listing complete")
	return refs, nil
}

func (l *Lister) listPrefix(ctx context.Context, prefix string) ([]cloudtrail.ObjectRef, error) {
	log := logctx.FromContext(ctx)

	var refs []cloudtrail.ObjectRef
	token := ""
	for {
		page, err := l.listPageWithRetry(ctx, prefix, token)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Objects {
			if !cloudtrail.IsLogObject(obj.Key) {
				continue
			}
			account, region, date, err := cloudtrail.ParseKey(obj.Key)
			if err != nil {
				// Digest and stray objects under the prefix are skipped,
				// not failed.
				log.Warn().Str("key", obj.Key).Msg("skipping unparseable key")
				continue
			}
			refs = append(refs, cloudtrail.ObjectRef{
				Key:     obj.Key,
				Size:    obj.Size,
				Account: account,
				Region:  region,
				Date:    date,
			})
		}

		if page.NextToken == "" {
			return refs, nil
		}
		token = page.NextToken
	}
}

func (l *Lister) listPageWithRetry(ctx context.Context, prefix, token string) (*ListPage, error) {
	log := logctx.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= l.backoff.MaxAttempts; attempt++ {
		page, err := l.store.ListPage(ctx, prefix, token)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < l.backoff.MaxAttempts {
			log.Warn().
				Err(err).
				Str("prefix", prefix).
				Int("attempt", attempt).
				Msg("listing failed, retrying")
			if err := l.backoff.Sleep(ctx, attempt); err != nil {
				break
			}
		}
	}

	return nil, &ListError{Prefix: prefix, Err: lastErr}
}
