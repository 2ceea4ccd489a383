package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ragconsole/internal/domain"
)

// Session is the part of the session store the orchestrator needs.
type Session interface {
	Login(ctx context.Context, username, password string) (domain.Credential, error)
	Logout()
	IsAuthenticated() bool
	Token() (string, bool)
	Claims() (domain.Claims, bool)
}

// FilterSource supplies the comparison filters in effect when Ask refreshes metrics.
type FilterSource interface {
	Current() domain.Filters
}

// Orchestrator runs the client workflows and is the only writer of client state.
// Workflows block; the tui runs them inside commands.
type Orchestrator struct {
	backend  domain.Backend
	session  Session
	filters  FilterSource
	log      *zap.Logger
	validate *validator.Validate
	st       state
}

func NewOrchestrator(backend domain.Backend, session Session, filters FilterSource, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		backend:  backend,
		session:  session,
		filters:  filters,
		log:      log.Named("orchestrator"),
		validate: validator.New(),
	}
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot { return o.st.snapshot() }

// OnChange registers fn to run after every state change. fn runs outside the state lock.
func (o *Orchestrator) OnChange(fn func()) { o.st.onChange(fn) }

func (o *Orchestrator) IsAuthenticated() bool { return o.session.IsAuthenticated() }

// Claims returns the unverified token claims, if the token is a JWT.
func (o *Orchestrator) Claims() (domain.Claims, bool) { return o.session.Claims() }

func (o *Orchestrator) DismissError() { o.st.clear(false, true) }

func (o *Orchestrator) ClearNotice() { o.st.clear(true, false) }

// Login signs in and surfaces the outcome.
func (o *Orchestrator) Login(ctx context.Context, username, password string) error {
	if _, err := o.session.Login(ctx, username, password); err != nil {
		o.st.setErr(err)
		return err
	}
	o.st.clear(false, true)
	o.st.setNotice("Signed in as " + username)
	return nil
}

func (o *Orchestrator) Logout() {
	o.session.Logout()
	o.st.setNotice("Signed out")
}

// Upload sends the document with the fixed chunk size.
func (o *Orchestrator) Upload(ctx context.Context, doc domain.Document) (domain.UploadReceipt, error) {
	if strings.TrimSpace(doc.Path) == "" {
		o.st.setErr(domain.ErrNoDocument)
		return domain.UploadReceipt{}, domain.ErrNoDocument
	}
	if !o.st.begin(uploading) {
		return domain.UploadReceipt{}, domain.ErrBusy
	}
	defer o.st.end(uploading)

	o.log.Info("upload started", zap.String("path", doc.Path))
	rec, err := o.backend.Upload(ctx, doc, domain.DefaultChunkSize)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrIngestion, err)
		o.log.Warn("upload failed", zap.String("path", doc.Path), zap.Error(err))
		o.st.setErr(err)
		return domain.UploadReceipt{}, err
	}
	o.st.setUpload(rec)
	o.st.setNotice("Upload complete")
	o.log.Info("upload complete", zap.Int("chunks", rec.ChunksCreated), zap.Int("vectors", rec.TotalVectors))
	return rec, nil
}

// Ask sends the question, then refreshes both metrics views before returning.
// A refresh failure is returned but does not undo the new result.
func (o *Orchestrator) Ask(ctx context.Context, question string) (domain.QueryResult, error) {
	token, ok := o.session.Token()
	if !ok {
		o.st.setErr(domain.ErrUnauthorized)
		return domain.QueryResult{}, domain.ErrUnauthorized
	}
	req := domain.NewQueryRequest(strings.TrimSpace(question))
	if err := o.validate.Struct(req); err != nil {
		o.st.setErr(domain.ErrEmptyQuestion)
		return domain.QueryResult{}, domain.ErrEmptyQuestion
	}
	if !o.st.begin(querying) {
		return domain.QueryResult{}, domain.ErrBusy
	}
	defer o.st.end(querying)

	res, err := o.backend.Query(ctx, token, req)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrQuery, err)
		o.log.Warn("query failed", zap.Error(err))
		o.st.setErr(err)
		return domain.QueryResult{}, err
	}
	o.st.setResult(res)
	o.log.Info("query answered",
		zap.Int("passages", len(res.Passages)),
		zap.Float64("total_latency", res.TotalLatency),
	)

	return res, o.refreshAll(ctx, o.filters.Current())
}

// Bootstrap performs the initial load of both metrics views.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	return o.refreshAll(ctx, o.filters.Current())
}

// refreshAll runs both fetches concurrently and waits for both.
func (o *Orchestrator) refreshAll(ctx context.Context, f domain.Filters) error {
	var (
		wg             sync.WaitGroup
		rawErr, cmpErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rawErr = o.FetchRawMetrics(ctx)
	}()
	go func() {
		defer wg.Done()
		cmpErr = o.RefreshComparison(ctx, f)
	}()
	wg.Wait()
	return multierr.Combine(rawErr, cmpErr)
}

// FetchRawMetrics replaces the experiment rows. On failure the old rows stay.
func (o *Orchestrator) FetchRawMetrics(ctx context.Context) error {
	seq := o.st.nextRawSeq()
	rows, err := o.backend.Metrics(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrMetrics, err)
		if !o.st.rawFailed(seq, err) {
			o.log.Debug("superseded metrics fetch failed", zap.Uint64("seq", seq), zap.Error(err))
			return err
		}
		o.log.Warn("metrics fetch failed", zap.Error(err))
		return err
	}
	if !o.st.setExperiments(seq, rows) {
		o.log.Debug("stale metrics response dropped", zap.Uint64("seq", seq))
	}
	return nil
}

// RefreshComparison replaces the comparison rows for the given filters.
// A failure is only surfaced if no newer comparison fetch was started since.
func (o *Orchestrator) RefreshComparison(ctx context.Context, f domain.Filters) error {
	seq := o.st.nextCmpSeq()
	rows, err := o.backend.Compare(ctx, f)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrMetrics, err)
		if !o.st.cmpFailed(seq, err) {
			o.log.Debug("superseded comparison fetch failed", zap.Uint64("seq", seq), zap.Error(err))
			return err
		}
		o.log.Warn("comparison fetch failed", zap.Error(err))
		return err
	}
	if !o.st.setComparison(seq, rows) {
		o.log.Debug("stale comparison response dropped", zap.Uint64("seq", seq))
	}
	return nil
}
