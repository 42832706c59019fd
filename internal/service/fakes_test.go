package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/newsmill/newsmill/internal/models"
	"github.com/newsmill/newsmill/internal/store"
)

// memQueue is an in-memory JobQueue mirroring the store's transition guards.
type memQueue struct {
	mu        sync.Mutex
	seq       uint
	posts     map[uint]*models.ScheduledPost
	failURLs  map[string]error
	enqueues  int
	claimReqs int
}

func newMemQueue() *memQueue {
	return &memQueue{
		posts:    make(map[uint]*models.ScheduledPost),
		failURLs: make(map[string]error),
	}
}

func (q *memQueue) Enqueue(post *models.ScheduledPost) (uint, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.enqueues++
	if err := store.ValidateSourceURL(post.SourceURL); err != nil {
		return 0, err
	}
	if post.ScheduledTime.IsZero() {
		return 0, &models.ValidationError{Field: "scheduled_time", Reason: "must be set"}
	}
	if err, ok := q.failURLs[post.SourceURL]; ok {
		return 0, err
	}

	q.seq++
	stored := *post
	stored.ID = q.seq
	stored.Status = models.StatusPending
	q.posts[stored.ID] = &stored
	post.ID = stored.ID
	return stored.ID, nil
}

func (q *memQueue) ClaimDue(limit int, now time.Time) ([]models.ScheduledPost, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.claimReqs++

	var due []*models.ScheduledPost
	for _, post := range q.posts {
		if post.Status == models.StatusPending && !post.ScheduledTime.After(now) {
			due = append(due, post)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledTime.Equal(due[j].ScheduledTime) {
			return due[i].ID < due[j].ID
		}
		return due[i].ScheduledTime.Before(due[j].ScheduledTime)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]models.ScheduledPost, 0, len(due))
	for _, post := range due {
		post.Status = models.StatusProcessing
		claimedAt := now
		post.ClaimedAt = &claimedAt
		claimed = append(claimed, *post)
	}
	return claimed, nil
}

func (q *memQueue) Complete(id uint, completedAt time.Time, postID int64) error {
	return q.finalize(id, models.StatusCompleted, completedAt, func(post *models.ScheduledPost) {
		post.PostID = &postID
	})
}

func (q *memQueue) Fail(id uint, completedAt time.Time, reason string) error {
	return q.finalize(id, models.StatusFailed, completedAt, func(post *models.ScheduledPost) {
		post.Error = reason
	})
}

func (q *memQueue) finalize(id uint, status string, completedAt time.Time, mutate func(*models.ScheduledPost)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	post, ok := q.posts[id]
	if !ok {
		return errors.Wrapf(models.ErrNotFound, "scheduled post %d", id)
	}
	if post.Status != models.StatusProcessing {
		return &models.StateError{ID: id, Status: post.Status, Op: "finalize"}
	}
	post.Status = status
	post.CompletedTime = &completedAt
	mutate(post)
	return nil
}

func (q *memQueue) ReclaimStale(now time.Time, timeout time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := now.Add(-timeout)
	var reclaimed int64
	for _, post := range q.posts {
		if post.Status == models.StatusProcessing && post.ClaimedAt != nil && post.ClaimedAt.Before(cutoff) {
			post.Status = models.StatusPending
			post.ClaimedAt = nil
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (q *memQueue) claims() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.claimReqs
}

func (q *memQueue) get(id uint) models.ScheduledPost {
	q.mu.Lock()
	defer q.mu.Unlock()
	return *q.posts[id]
}

func (q *memQueue) byURL(url string) []models.ScheduledPost {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []models.ScheduledPost
	for _, post := range q.posts {
		if post.SourceURL == url {
			out = append(out, *post)
		}
	}
	return out
}

// memLedger is an in-memory DedupLedger.
type memLedger struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{seen: make(map[string]time.Time)}
}

func (l *memLedger) HasSeen(url string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[url]
	return ok, nil
}

func (l *memLedger) MarkSeen(url string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[url]; !ok {
		l.seen[url] = at
	}
	return nil
}

func (l *memLedger) EvictOlderThan(cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var evicted int64
	for url, at := range l.seen {
		if at.Before(cutoff) {
			delete(l.seen, url)
			evicted++
		}
	}
	return evicted, nil
}

// memActivity collects log entries.
type memActivity struct {
	mu      sync.Mutex
	entries []models.ActivityLog
}

func (a *memActivity) Record(action, sourceURL, status, message string, options ...store.LogOption) error {
	entry := models.ActivityLog{
		Action:    action,
		SourceURL: sourceURL,
		Status:    status,
		Message:   message,
		CreatedAt: time.Now(),
	}
	for _, option := range options {
		option(&entry)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memActivity) byStatus(status string) []models.ActivityLog {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []models.ActivityLog
	for _, entry := range a.entries {
		if entry.Status == status {
			out = append(out, entry)
		}
	}
	return out
}

// stubScraper returns a scripted article or error per URL.
type stubScraper struct {
	mu       sync.Mutex
	articles map[string]*ScrapedArticle
	errs     map[string]error
	calls    []string
}

func newStubScraper() *stubScraper {
	return &stubScraper{
		articles: make(map[string]*ScrapedArticle),
		errs:     make(map[string]error),
	}
}

func (s *stubScraper) ScrapeArticle(_ context.Context, url string) (*ScrapedArticle, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()

	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if article, ok := s.articles[url]; ok {
		return article, nil
	}
	return &ScrapedArticle{Title: "Stub title", Content: "Stub content", URL: url}, nil
}

// stubGenerator echoes content, with optional scripted failures.
type stubGenerator struct {
	mu         sync.Mutex
	err        error
	linksErr   error
	imageErr   error
	imageURL   string
	lastReq    *GenerateRequest
	lastPrompt string
	lastModel  string
	lastStyle  string
	calls      int
	linkCalls  int
	imageCalls int
}

func (g *stubGenerator) GenerateContent(_ context.Context, req *GenerateRequest) (*GeneratedContent, error) {
	g.mu.Lock()
	g.calls++
	g.lastReq = req
	g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	return &GeneratedContent{
		Title:   "Rewritten: " + req.Title,
		Content: req.Content,
	}, nil
}

func (g *stubGenerator) GenerateImage(_ context.Context, prompt, model, style string) (string, error) {
	g.mu.Lock()
	g.imageCalls++
	g.lastPrompt = prompt
	g.lastModel = model
	g.lastStyle = style
	g.mu.Unlock()

	if g.imageErr != nil {
		return "", g.imageErr
	}
	if g.imageURL != "" {
		return g.imageURL, nil
	}
	return "https://img.test/generated.png", nil
}

func (g *stubGenerator) GenerateInternalLinks(_ context.Context, content string) (string, error) {
	g.mu.Lock()
	g.linkCalls++
	g.mu.Unlock()

	if g.linksErr != nil {
		return "", g.linksErr
	}
	return content + "\n<a href=\"/related\">related</a>", nil
}

// stubPublisher records created posts.
type stubPublisher struct {
	mu         sync.Mutex
	nextID     int64
	createErr  error
	imageErr   error
	updateErr  error
	created    []*PostDraft
	featured   map[int64]string
	updates    map[int64]PostUpdate
}

func newStubPublisher() *stubPublisher {
	return &stubPublisher{
		nextID:   42,
		featured: make(map[int64]string),
		updates:  make(map[int64]PostUpdate),
	}
}

func (p *stubPublisher) CreatePost(_ context.Context, draft *PostDraft) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.createErr != nil {
		return 0, p.createErr
	}
	id := p.nextID
	p.nextID++
	p.created = append(p.created, draft)
	return id, nil
}

func (p *stubPublisher) SetFeaturedImage(_ context.Context, postID int64, imageURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.imageErr != nil {
		return p.imageErr
	}
	p.featured[postID] = imageURL
	return nil
}

func (p *stubPublisher) UpdatePost(_ context.Context, postID int64, update PostUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.updateErr != nil {
		return p.updateErr
	}
	p.updates[postID] = update
	return nil
}

// stubFetcher serves scripted feed items per feed URL.
type stubFetcher struct {
	mu    sync.Mutex
	items map[string][]FeedItem
	errs  map[string]error
	calls map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		items: make(map[string][]FeedItem),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *stubFetcher) FetchFeed(_ context.Context, feedURL string, limit int, _ string) ([]FeedItem, error) {
	f.mu.Lock()
	f.calls[feedURL]++
	f.mu.Unlock()

	if err, ok := f.errs[feedURL]; ok {
		return nil, err
	}
	items := f.items[feedURL]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *stubFetcher) TestFeed(context.Context, string) error {
	return nil
}
