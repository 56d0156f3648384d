package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/recruitment-api/internal/model"
	"github.com/iliyamo/recruitment-api/internal/queue"
	"github.com/iliyamo/recruitment-api/internal/repository"
	"github.com/iliyamo/recruitment-api/internal/storage"
)

type fakeAccounts struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Account
}

func newFakeAccounts() *fakeAccounts { return &fakeAccounts{rows: map[uint64]model.Account{}} }

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Email == a.Email {
			return repository.ErrEmailTaken
		}
	}
	f.next++
	a.ID = f.next
	f.rows[a.ID] = *a
	return nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Email == email {
			return r, nil
		}
	}
	return model.Account{}, repository.ErrAccountNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint64) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return r, repository.ErrAccountNotFound
	}
	return r, nil
}

func (f *fakeAccounts) update(id uint64, fn func(*model.Account)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	fn(&r)
	f.rows[id] = r
	return nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id uint64, first, last, phone string) error {
	return f.update(id, func(a *model.Account) { a.FirstName, a.LastName, a.PhoneNumber = first, last, phone })
}

func (f *fakeAccounts) SetActive(_ context.Context, id uint64, active bool) error {
	return f.update(id, func(a *model.Account) { a.IsActive = active })
}

func (f *fakeAccounts) SetRoles(_ context.Context, id uint64, staff, superuser bool) error {
	return f.update(id, func(a *model.Account) { a.IsStaff, a.IsSuperuser = staff, superuser })
}

func (f *fakeAccounts) SetPassword(_ context.Context, id uint64, hash string) error {
	return f.update(id, func(a *model.Account) { a.PasswordHash = hash })
}

func (f *fakeAccounts) List(_ context.Context, q string, page, size int) ([]model.Account, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Account{}
	for _, r := range f.rows {
		if q == "" || strings.Contains(r.Email, q) {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

type fakeToken struct {
	accountID uint64
	exp       time.Time
	revoked   bool
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]*fakeToken
}

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[string]*fakeToken{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, accountID uint64, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[hash] = &fakeToken{accountID: accountID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return 0, repository.ErrRefreshInvalid
	}
	return t.accountID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[hash]
	if !ok || t.revoked {
		return false, nil
	}
	t.revoked = true
	return true, nil
}

func (f *fakeTokens) RevokeAllForAccount(_ context.Context, accountID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.accountID == accountID {
			t.revoked = true
		}
	}
	return nil
}

type fakeListings struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Listing
	// documents removed along with a listing, keyed by listing id
	docs map[uint64][]string
}

func newFakeListings() *fakeListings {
	return &fakeListings{rows: map[uint64]model.Listing{}, docs: map[uint64][]string{}}
}

func (f *fakeListings) Insert(_ context.Context, l *model.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Slug == l.Slug {
			return repository.ErrSlugTaken
		}
	}
	f.next++
	l.ID = f.next
	f.rows[l.ID] = *l
	return nil
}

func (f *fakeListings) Update(_ context.Context, l model.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[l.ID]; !ok {
		return repository.ErrListingNotFound
	}
	f.rows[l.ID] = l
	return nil
}

func (f *fakeListings) SetActive(_ context.Context, id uint64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return repository.ErrListingNotFound
	}
	r.IsActive = active
	f.rows[id] = r
	return nil
}

func (f *fakeListings) Delete(_ context.Context, id uint64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return nil, repository.ErrListingNotFound
	}
	delete(f.rows, id)
	return f.docs[id], nil
}

func (f *fakeListings) GetBySlug(_ context.Context, slug string, includeInactive bool) (model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Slug == slug && (includeInactive || r.IsActive) {
			return r, nil
		}
	}
	return model.Listing{}, repository.ErrListingNotFound
}

func (f *fakeListings) GetByID(_ context.Context, id uint64) (model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return r, repository.ErrListingNotFound
	}
	return r, nil
}

func (f *fakeListings) Search(_ context.Context, q repository.ListingQuery) ([]model.Listing, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Listing{}
	for _, r := range f.rows {
		if q.ActiveOnly && !r.IsActive {
			continue
		}
		if q.Active != nil && r.IsActive != *q.Active {
			continue
		}
		if q.Category != "" && r.Category != q.Category {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeListings) Suggest(_ context.Context, column, q string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint64, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	seen := map[string]bool{}
	out := []string{}
	for _, id := range ids {
		r := f.rows[id]
		if !r.IsActive {
			continue
		}
		var v string
		switch column {
		case "title":
			v = r.Title
		case "company":
			v = r.Company
		case "location":
			v = r.Location
		default:
			return nil, fmt.Errorf("bad column %q", column)
		}
		if strings.Contains(strings.ToLower(v), strings.ToLower(q)) && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeApplications struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Application
	// createHook runs before a row is written, outside the lock.
	createHook func()
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{rows: map[uint64]model.Application{}}
}

func (f *fakeApplications) Create(_ context.Context, a *model.Application) error {
	if f.createHook != nil {
		f.createHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ListingID == a.ListingID && r.AccountID == a.AccountID {
			return repository.ErrAlreadyApplied
		}
	}
	f.next++
	a.ID = f.next
	f.rows[a.ID] = *a
	return nil
}

func (f *fakeApplications) GetByID(_ context.Context, id uint64) (model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return r, repository.ErrApplicationNotFound
	}
	return r, nil
}

func (f *fakeApplications) GetFor(_ context.Context, accountID, listingID uint64) (model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.AccountID == accountID && r.ListingID == listingID {
			return r, nil
		}
	}
	return model.Application{}, repository.ErrApplicationNotFound
}

func (f *fakeApplications) Exists(ctx context.Context, accountID, listingID uint64) (bool, error) {
	_, err := f.GetFor(ctx, accountID, listingID)
	if errors.Is(err, repository.ErrApplicationNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeApplications) AppliedAmong(_ context.Context, accountID uint64, ids []uint64) (map[uint64]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uint64]bool{}
	for _, id := range ids {
		for _, r := range f.rows {
			if r.AccountID == accountID && r.ListingID == id {
				out[id] = true
			}
		}
	}
	return out, nil
}

func (f *fakeApplications) filter(keep func(model.Application) bool) []model.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Application{}
	for _, r := range f.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeApplications) ListByAccount(_ context.Context, accountID uint64, _, _ int) ([]model.Application, int64, error) {
	out := f.filter(func(a model.Application) bool { return a.AccountID == accountID })
	return out, int64(len(out)), nil
}

func (f *fakeApplications) ListByListing(_ context.Context, listingID uint64, status model.ApplicationStatus, _, _ int) ([]model.Application, int64, error) {
	out := f.filter(func(a model.Application) bool {
		return a.ListingID == listingID && (status == "" || a.Status == status)
	})
	return out, int64(len(out)), nil
}

func (f *fakeApplications) UpdateStatus(_ context.Context, id uint64, status model.ApplicationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return repository.ErrApplicationNotFound
	}
	r.Status = status
	f.rows[id] = r
	return nil
}

func (f *fakeApplications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeObjects struct {
	mu      sync.Mutex
	next    int
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects { return &fakeObjects{objects: map[string][]byte{}} }

func (f *fakeObjects) Put(_ context.Context, in storage.PutInput) (storage.Object, error) {
	if f.putErr != nil {
		return storage.Object{}, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return storage.Object{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("%s/obj-%d", in.Folder, f.next)
	f.objects[id] = b
	return storage.Object{ID: id, URL: "https://files.test/" + id}, nil
}

func (f *fakeObjects) SignedURL(_ context.Context, id string, attachment bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[id]; !ok {
		return "", storage.ErrNotFound
	}
	return fmt.Sprintf("https://files.test/%s?signed=1&dl=%t", id, attachment), nil
}

func (f *fakeObjects) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, id)
	return nil
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ApplicationEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev queue.ApplicationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) all() []queue.ApplicationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.ApplicationEvent(nil), f.events...)
}

type fakeTaxonomy struct {
	mu         sync.Mutex
	next       uint64
	categories []model.Category
	tags       []model.Tag
}

func (f *fakeTaxonomy) InsertCategory(_ context.Context, c *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.categories {
		if r.Slug == c.Slug {
			return repository.ErrSlugTaken
		}
	}
	f.next++
	c.ID = f.next
	f.categories = append(f.categories, *c)
	return nil
}

func (f *fakeTaxonomy) InsertTag(_ context.Context, t *model.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.tags {
		if r.Slug == t.Slug {
			return repository.ErrSlugTaken
		}
	}
	f.next++
	t.ID = f.next
	f.tags = append(f.tags, *t)
	return nil
}

func (f *fakeTaxonomy) Categories(context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Category{}, f.categories...), nil
}

func (f *fakeTaxonomy) Tags(context.Context) ([]model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Tag{}, f.tags...), nil
}

func (f *fakeTaxonomy) known(catIDs, tagIDs []uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	has := func(id uint64) bool {
		for _, c := range f.categories {
			if c.ID == id {
				return true
			}
		}
		for _, t := range f.tags {
			if t.ID == id {
				return true
			}
		}
		return false
	}
	for _, id := range append(append([]uint64{}, catIDs...), tagIDs...) {
		if !has(id) {
			return false
		}
	}
	return true
}

type fakeAuthors struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Author
}

func newFakeAuthors() *fakeAuthors { return &fakeAuthors{rows: map[uint64]model.Author{}} }

func (f *fakeAuthors) Create(_ context.Context, a *model.Author) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.AccountID == a.AccountID {
			return repository.ErrAuthorExists
		}
	}
	f.next++
	a.ID = f.next
	f.rows[a.ID] = *a
	return nil
}

func (f *fakeAuthors) GetByID(_ context.Context, id uint64) (model.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return r, repository.ErrAuthorNotFound
	}
	return r, nil
}

func (f *fakeAuthors) List(context.Context) ([]model.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Author{}
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

type fakePosts struct {
	mu       sync.Mutex
	next     uint64
	rows     map[uint64]model.Post
	taxonomy *fakeTaxonomy
}

func newFakePosts(tx *fakeTaxonomy) *fakePosts {
	return &fakePosts{rows: map[uint64]model.Post{}, taxonomy: tx}
}

func (f *fakePosts) Insert(_ context.Context, p *model.Post, catIDs, tagIDs []uint64) error {
	if !f.taxonomy.known(catIDs, tagIDs) {
		return repository.ErrUnknownReference
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Slug == p.Slug {
			return repository.ErrSlugTaken
		}
	}
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	f.next++
	p.ID = f.next
	f.rows[p.ID] = *p
	return nil
}

func (f *fakePosts) Update(_ context.Context, p model.Post, catIDs, tagIDs []uint64) error {
	if !f.taxonomy.known(catIDs, tagIDs) {
		return repository.ErrUnknownReference
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[p.ID]; !ok {
		return repository.ErrPostNotFound
	}
	f.rows[p.ID] = p
	return nil
}

func (f *fakePosts) SetDraft(_ context.Context, id uint64, draft bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[id]
	r.Draft = draft
	f.rows[id] = r
	return nil
}

func (f *fakePosts) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrPostNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakePosts) GetByID(_ context.Context, id uint64) (model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return r, repository.ErrPostNotFound
	}
	return r, nil
}

func (f *fakePosts) GetBySlug(_ context.Context, slug string, includeDrafts bool) (model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Slug == slug && (includeDrafts || !r.Draft) {
			return r, nil
		}
	}
	return model.Post{}, repository.ErrPostNotFound
}

func (f *fakePosts) Search(_ context.Context, q repository.PostQuery) ([]model.Post, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Post{}
	for _, r := range f.rows {
		if r.Draft && !q.IncludeDrafts {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakePosts) Recent(ctx context.Context, n int) ([]model.Post, error) {
	out, _, _ := f.Search(ctx, repository.PostQuery{})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
