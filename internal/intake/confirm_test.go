package intake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/pipeline"
	"github.com/sells-group/rumoo/internal/scrape"
)

func pendingProperty(t *testing.T, st *countingStore, runner *stubRunner) (*Router, string) {
	t.Helper()
	beds := 2
	partial := model.ListingCapture{Beds: &beds, PropertyType: "Condo", ImageURLs: []string{"https://photos.example/1.jpg"}}
	scraper := stubScraper{result: &scrape.Result{Source: "apify", Listing: &partial}, provider: "apify"}
	r := newTestRouter(st, runner, scraper)

	res, err := r.Ingest(context.Background(), URLOnly("https://www.realtor.com/realestateandhomes-detail/1"))
	require.NoError(t, err)
	require.Equal(t, KindPending, res.Kind)
	return r, res.PropertyID
}

func TestConfirm_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	runner := &stubRunner{}
	ctx := context.Background()
	router, propertyID := pendingProperty(t, st, runner)
	c := NewConfirmer(st, router)

	summary, err := c.Lookup(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, propertyID, summary.ID)
	assert.True(t, summary.NeedsConfirmation)
	assert.Nil(t, summary.ConfirmedAt)

	price := 399000.0
	zero := 0
	res, err := c.Confirm(ctx, testToken, Correction{Address: "  9 Elm St, Boise, ID ", Price: &price, Beds: &zero})
	require.NoError(t, err)
	assert.Equal(t, "cert-"+propertyID, res.CertificateID)
	assert.Equal(t, []string{propertyID}, runner.ids)

	p, err := st.GetProperty(ctx, propertyID)
	require.NoError(t, err)
	assert.Equal(t, "9 Elm St, Boise, ID", p.Address)
	assert.InDelta(t, 399000, *p.Price, 0.001)
	assert.Equal(t, 2, *p.Beds, "zero submission keeps the stored value")
	assert.Equal(t, "Condo", p.PropertyType)
	assert.False(t, p.NeedsConfirmation)
	assert.Equal(t, model.PropertyStatusProcessing, p.Status)
	require.NotNil(t, p.ConfirmedAt)
	assert.WithinDuration(t, testNow, *p.ConfirmedAt, time.Second)

	_, err = c.Confirm(ctx, testToken, Correction{Address: "9 Elm St, Boise, ID"})
	var ace *AlreadyConfirmedError
	require.ErrorAs(t, err, &ace)
	assert.Equal(t, MsgAlreadyConfirmed, err.Error())

	_, err = c.Lookup(ctx, testToken)
	require.ErrorAs(t, err, &ace)
	assert.Equal(t, MsgLinkUsed, err.Error())
	assert.Len(t, runner.ids, 1)
}

func TestConfirm_Validation(t *testing.T) {
	st := newTestStore(t)
	runner := &stubRunner{}
	router, propertyID := pendingProperty(t, st, runner)
	c := NewConfirmer(st, router)

	_, err := c.Confirm(context.Background(), testToken, Correction{Address: "   abc  "})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgAddressRequired, ve.Message)
	assert.Empty(t, runner.ids)

	p, err := st.GetProperty(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Nil(t, p.ConfirmedAt, "a rejected submission does not consume the token")
}

func TestConfirm_NotFound(t *testing.T) {
	st := newTestStore(t)
	c := NewConfirmer(st, newTestRouter(st, &stubRunner{}, nil))

	_, err := c.Lookup(context.Background(), "DEADBEEF")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, MsgLinkNotFound, err.Error())

	_, err = c.Confirm(context.Background(), "DEADBEEF", Correction{Address: "1 Main St"})
	require.ErrorAs(t, err, &nf)
}

func TestConfirm_ExpiredLinkIsNotFound(t *testing.T) {
	st := newTestStore(t)
	router, propertyID := pendingProperty(t, st, &stubRunner{})
	ctx := context.Background()

	status := model.PropertyStatusError
	msg := "confirmation link expired"
	require.NoError(t, st.UpdateProperty(ctx, propertyID, model.PropertyUpdate{Status: &status, ErrorMessage: &msg}))

	_, err := NewConfirmer(st, router).Lookup(ctx, testToken)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

// lockstepStore holds every token lookup until all expected readers have
// loaded the property, so their writes race.
type lockstepStore struct {
	*countingStore
	loaded sync.WaitGroup
}

func (l *lockstepStore) GetPropertyByToken(ctx context.Context, token string) (*model.Property, error) {
	p, err := l.countingStore.GetPropertyByToken(ctx, token)
	l.loaded.Done()
	l.loaded.Wait()
	return p, err
}

type lockedRunner struct {
	mu  sync.Mutex
	ids []string
}

func (r *lockedRunner) Run(_ context.Context, id string) (*pipeline.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return &pipeline.RunResult{PropertyID: id, CertificateID: "cert-" + id}, nil
}

func TestConfirm_ConcurrentSubmitsConsumeTokenOnce(t *testing.T) {
	base := newTestStore(t)
	_, propertyID := pendingProperty(t, base, &stubRunner{})

	const submits = 2
	st := &lockstepStore{countingStore: base}
	st.loaded.Add(submits)
	runner := &lockedRunner{}
	c := NewConfirmer(st, newTestRouter(st, runner, nil))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		consumed  int
	)
	for i := 0; i < submits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Confirm(context.Background(), testToken, Correction{Address: "9 Elm St, Boise, ID"})
			mu.Lock()
			defer mu.Unlock()
			var ace *AlreadyConfirmedError
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorAs(t, err, &ace):
				consumed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, consumed)
	assert.Equal(t, []string{propertyID}, runner.ids)

	p, err := base.GetProperty(context.Background(), propertyID)
	require.NoError(t, err)
	require.NotNil(t, p.ConfirmedAt)
	assert.Equal(t, model.PropertyStatusProcessing, p.Status)
}
