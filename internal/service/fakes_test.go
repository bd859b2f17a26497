package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/billing"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
)

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, pgx.ErrNoRows)
}

// memDB is an in-memory stand-in for the tables behind the repositories.
type memDB struct {
	mu        sync.Mutex
	profiles  map[string]*model.Profile
	bicycles  map[uuid.UUID]*model.Bicycle
	images    map[uuid.UUID]*model.BicycleImage
	reports   map[uuid.UUID]*model.TheftReport
	subs      map[string]*model.Subscription
	payments  map[string]*model.Payment
	txCount   int
	failStole error
}

func newMemRepos() (*repository.Repositories, *memDB) {
	db := &memDB{
		profiles: map[string]*model.Profile{},
		bicycles: map[uuid.UUID]*model.Bicycle{},
		images:   map[uuid.UUID]*model.BicycleImage{},
		reports:  map[uuid.UUID]*model.TheftReport{},
		subs:     map[string]*model.Subscription{},
		payments: map[string]*model.Payment{},
	}
	return &repository.Repositories{
		Profile:      &memProfiles{db},
		Bicycle:      &memBicycles{db},
		BicycleImage: &memImages{db},
		TheftReport:  &memReports{db},
		Subscription: &memSubs{db},
		Payment:      &memPayments{db},
		Stats:        &memStats{db},
	}, db
}

// memTx runs fn on the same repositories; it only counts transactions.
type memTx struct {
	repos *repository.Repositories
	db    *memDB
}

func (t *memTx) WithTx(ctx context.Context, fn func(tx *repository.Repositories) error) error {
	t.db.mu.Lock()
	t.db.txCount++
	t.db.mu.Unlock()
	return fn(t.repos)
}

func (db *memDB) addProfile(id, email, name string) *model.Profile {
	p := &model.Profile{ID: id, Email: email, FullName: name, Role: model.RoleUser, CreatedAt: time.Now()}
	db.profiles[id] = p
	return p
}

func (db *memDB) addSubscription(userID, planID string, limit int, status model.SubscriptionStatus) *model.Subscription {
	end := time.Now().Add(30 * 24 * time.Hour)
	s := &model.Subscription{
		ID:                   uuid.New(),
		UserID:               userID,
		StripeSubscriptionID: "sub_" + userID,
		StripeCustomerID:     "cus_" + userID,
		StripePriceID:        "price_" + planID,
		PlanID:               planID,
		BicycleLimit:         limit,
		Status:               status,
		CurrentPeriodEnd:     &end,
		CreatedAt:            time.Now(),
	}
	db.subs[s.StripeSubscriptionID] = s
	return s
}

func (db *memDB) addBicycle(userID, serial string) *model.Bicycle {
	b := &model.Bicycle{
		ID:           uuid.New(),
		UserID:       userID,
		SerialNumber: serial,
		Brand:        "Trek",
		Model:        "Marlin 5",
		Color:        "Red",
		BikeType:     "mountain",
		CreatedAt:    time.Now(),
	}
	db.bicycles[b.ID] = b
	return b
}

type memProfiles struct{ db *memDB }

func (r *memProfiles) Create(_ context.Context, p *model.Profile) (*model.Profile, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing, ok := r.db.profiles[p.ID]; ok {
		c := *existing
		return &c, false, nil
	}
	c := *p
	c.CreatedAt = time.Now()
	r.db.profiles[p.ID] = &c
	out := c
	return &out, true, nil
}

func (r *memProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	c := *p
	return &c, nil
}

func (r *memProfiles) GetByStripeCustomerID(_ context.Context, customerID string) (*model.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.profiles {
		if p.StripeCustomerID != nil && *p.StripeCustomerID == customerID {
			c := *p
			return &c, nil
		}
	}
	return nil, notFound("profile")
}

func (r *memProfiles) Update(_ context.Context, id string, u repository.ProfileUpdate) (*model.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[id]
	if !ok {
		return nil, notFound("profile")
	}
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	setOptional(&p.Phone, u.Phone)
	setOptional(&p.Address, u.Address)
	setOptional(&p.City, u.City)
	setOptional(&p.State, u.State)
	setOptional(&p.PostalCode, u.PostalCode)
	c := *p
	return &c, nil
}

// setOptional applies the repository update rule: nil keeps, "" clears.
func setOptional(dst **string, v *string) {
	switch {
	case v == nil:
	case *v == "":
		*dst = nil
	default:
		c := *v
		*dst = &c
	}
}

func (r *memProfiles) SetStripeCustomerID(_ context.Context, id, customerID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[id]
	if !ok {
		return notFound("profile")
	}
	p.StripeCustomerID = &customerID
	return nil
}

type memBicycles struct{ db *memDB }

func (r *memBicycles) Create(_ context.Context, b *model.Bicycle) (*model.Bicycle, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *b
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.db.bicycles[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memBicycles) GetByID(_ context.Context, id uuid.UUID) (*model.Bicycle, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bicycles[id]
	if !ok {
		return nil, notFound("bicycle")
	}
	c := *b
	return &c, nil
}

func (r *memBicycles) GetOwned(ctx context.Context, id uuid.UUID, userID string) (*model.Bicycle, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, notFound("bicycle")
	}
	return b, nil
}

func (r *memBicycles) GetBySerial(_ context.Context, serial string) (*model.Bicycle, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.bicycles {
		if b.SerialNumber == serial {
			c := *b
			return &c, nil
		}
	}
	return nil, notFound("bicycle")
}

func (r *memBicycles) ListByUser(_ context.Context, userID string) ([]model.Bicycle, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Bicycle
	for _, b := range r.db.bicycles {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBicycles) CountByUser(ctx context.Context, userID string) (int, error) {
	list, err := r.ListByUser(ctx, userID)
	return len(list), err
}

func (r *memBicycles) Update(_ context.Context, id uuid.UUID, userID string, u repository.BicycleUpdate) (*model.Bicycle, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bicycles[id]
	if !ok || b.UserID != userID {
		return nil, notFound("bicycle")
	}
	if u.Brand != nil {
		b.Brand = *u.Brand
	}
	if u.Color != nil {
		b.Color = *u.Color
	}
	if u.Year != nil {
		b.Year = u.Year
	}
	setOptional(&b.WheelSize, u.WheelSize)
	setOptional(&b.Characteristics, u.Characteristics)
	setOptional(&b.PurchasePlace, u.PurchasePlace)
	c := *b
	return &c, nil
}

func (r *memBicycles) Delete(_ context.Context, id uuid.UUID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bicycles[id]
	if !ok || b.UserID != userID {
		return notFound("bicycle")
	}
	delete(r.db.bicycles, id)
	for imgID, img := range r.db.images {
		if img.BicycleID == id {
			delete(r.db.images, imgID)
		}
	}
	return nil
}

func (r *memBicycles) SetStolen(_ context.Context, id uuid.UUID, stolen bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failStole != nil {
		return r.db.failStole
	}
	b, ok := r.db.bicycles[id]
	if !ok {
		return notFound("bicycle")
	}
	b.IsStolen = stolen
	return nil
}

func (r *memBicycles) SetInvoicePath(_ context.Context, id uuid.UUID, path string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bicycles[id]
	if !ok {
		return notFound("bicycle")
	}
	b.InvoicePath = &path
	return nil
}

func (r *memBicycles) Search(_ context.Context, q string, page, limit int) (*model.Page[model.BicycleSearchResult], error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := &model.Page[model.BicycleSearchResult]{Data: []model.BicycleSearchResult{}, Page: page, Limit: limit}
	for _, b := range r.db.bicycles {
		if strings.Contains(b.SerialNumber, strings.ToUpper(q)) {
			out.Data = append(out.Data, model.BicycleSearchResult{Bicycle: *b})
		}
	}
	out.Total = int64(len(out.Data))
	return out, nil
}

type memImages struct{ db *memDB }

func (r *memImages) Create(_ context.Context, img *model.BicycleImage) (*model.BicycleImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *img
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.db.images[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memImages) ListByBicycle(ctx context.Context, bicycleID uuid.UUID) ([]model.BicycleImage, error) {
	return r.ListByBicycles(ctx, []uuid.UUID{bicycleID})
}

func (r *memImages) ListByBicycles(_ context.Context, ids []uuid.UUID) ([]model.BicycleImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.BicycleImage
	for _, img := range r.db.images {
		for _, id := range ids {
			if img.BicycleID == id {
				out = append(out, *img)
			}
		}
	}
	return out, nil
}

func (r *memImages) CountByBicycle(ctx context.Context, bicycleID uuid.UUID) (int, error) {
	list, err := r.ListByBicycle(ctx, bicycleID)
	return len(list), err
}

func (r *memImages) GetOwned(_ context.Context, id, bicycleID uuid.UUID, userID string) (*model.BicycleImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	img, ok := r.db.images[id]
	if !ok || img.BicycleID != bicycleID {
		return nil, notFound("image")
	}
	if b, ok := r.db.bicycles[bicycleID]; !ok || b.UserID != userID {
		return nil, notFound("image")
	}
	c := *img
	return &c, nil
}

func (r *memImages) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.images, id)
	return nil
}

type memReports struct{ db *memDB }

func (r *memReports) Create(_ context.Context, t *model.TheftReport) (*model.TheftReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *t
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.db.reports[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memReports) GetOwned(_ context.Context, id uuid.UUID, userID string) (*model.TheftReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.reports[id]
	if !ok || t.UserID != userID {
		return nil, notFound("theft report")
	}
	c := *t
	return &c, nil
}

func (r *memReports) GetActiveByBicycle(_ context.Context, bicycleID uuid.UUID) (*model.TheftReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.reports {
		if t.BicycleID == bicycleID && t.Status == model.TheftStatusActive {
			c := *t
			return &c, nil
		}
	}
	return nil, notFound("theft report")
}

func (r *memReports) ListByUser(_ context.Context, userID string) ([]model.TheftReportWithBicycle, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.TheftReportWithBicycle
	for _, t := range r.db.reports {
		if t.UserID == userID {
			out = append(out, model.TheftReportWithBicycle{TheftReport: *t})
		}
	}
	return out, nil
}

func (r *memReports) ListAll(_ context.Context, status string, page, limit int) (*model.Page[model.TheftReportWithBicycle], error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := &model.Page[model.TheftReportWithBicycle]{Data: []model.TheftReportWithBicycle{}, Page: page, Limit: limit}
	for _, t := range r.db.reports {
		if status == "" || string(t.Status) == status {
			out.Data = append(out.Data, model.TheftReportWithBicycle{TheftReport: *t})
		}
	}
	out.Total = int64(len(out.Data))
	return out, nil
}

func (r *memReports) UpdateStatus(_ context.Context, id uuid.UUID, status model.TheftStatus, recoveredAt *time.Time) (*model.TheftReport, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.reports[id]
	if !ok || t.Status != model.TheftStatusActive {
		return nil, notFound("active theft report")
	}
	t.Status = status
	t.RecoveredAt = recoveredAt
	c := *t
	return &c, nil
}

type memSubs struct{ db *memDB }

func (r *memSubs) Upsert(_ context.Context, s *model.Subscription) (*model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *s
	if existing, ok := r.db.subs[s.StripeSubscriptionID]; ok {
		c.ID = existing.ID
		c.UserID = existing.UserID
		c.CreatedAt = existing.CreatedAt
		if existing.Status == model.SubscriptionStatusCanceled {
			c.Status = existing.Status
			c.CanceledAt = existing.CanceledAt
		}
	} else {
		c.ID = uuid.New()
		c.CreatedAt = time.Now()
	}
	r.db.subs[s.StripeSubscriptionID] = &c
	out := c
	return &out, nil
}

func (r *memSubs) GetCurrentByUser(_ context.Context, userID string) (*model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var fallback *model.Subscription
	for _, s := range r.db.subs {
		if s.UserID != userID {
			continue
		}
		switch s.Status {
		case model.SubscriptionStatusActive, model.SubscriptionStatusTrialing, model.SubscriptionStatusPastDue:
			c := *s
			return &c, nil
		}
		fallback = s
	}
	if fallback == nil {
		return nil, notFound("subscription")
	}
	c := *fallback
	return &c, nil
}

func (r *memSubs) GetByStripeID(_ context.Context, stripeID string) (*model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.subs[stripeID]
	if !ok {
		return nil, notFound("subscription")
	}
	c := *s
	return &c, nil
}

func (r *memSubs) ListByUser(_ context.Context, userID string) ([]model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Subscription
	for _, s := range r.db.subs {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSubs) ListExpired(_ context.Context, cutoff time.Time) ([]model.Subscription, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Subscription
	for _, s := range r.db.subs {
		active := s.Status == model.SubscriptionStatusActive || s.Status == model.SubscriptionStatusTrialing
		if active && s.CancelAtPeriodEnd && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(cutoff) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSubs) MarkStatus(_ context.Context, id uuid.UUID, status model.SubscriptionStatus, canceledAt *time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.subs {
		if s.ID == id {
			s.Status = status
			if canceledAt != nil {
				s.CanceledAt = canceledAt
			}
			return nil
		}
	}
	return notFound("subscription")
}

type memPayments struct{ db *memDB }

func (r *memPayments) Upsert(_ context.Context, p *model.Payment) (*model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c := *p
	if existing, ok := r.db.payments[p.StripeInvoiceID]; ok {
		c.ID = existing.ID
		if existing.Status == model.PaymentStatusSucceeded {
			c.Status = existing.Status
		}
	} else {
		c.ID = uuid.New()
	}
	r.db.payments[p.StripeInvoiceID] = &c
	out := c
	return &out, nil
}

func (r *memPayments) ListByUser(_ context.Context, userID string) ([]model.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Payment
	for _, p := range r.db.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memStats struct{ db *memDB }

func (r *memStats) Get(_ context.Context) (*model.Stats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stats := &model.Stats{
		Users:    int64(len(r.db.profiles)),
		Bicycles: int64(len(r.db.bicycles)),
		Revenue:  make(map[string]decimal.Decimal),
	}
	cents := make(map[string]int64)
	for _, p := range r.db.payments {
		if p.Status == model.PaymentStatusSucceeded {
			cents[p.Currency] += p.AmountCents
		}
	}
	for currency, total := range cents {
		stats.Revenue[currency] = decimal.New(total, -2)
	}
	return stats, nil
}

// recordingQueue keeps enqueued tasks.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task *asynq.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) types() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.tasks))
	for i, t := range q.tasks {
		out[i] = t.Type()
	}
	return out
}

type storedObject struct {
	body        []byte
	contentType string
}

// memObjectStore keeps uploaded objects keyed by bucket/key.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string]storedObject
	deleted []string
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string]storedObject{}}
}

func (s *memObjectStore) Put(_ context.Context, bucket, key string, body io.ReadSeeker, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = storedObject{body: data, contentType: contentType}
	return nil
}

func (s *memObjectStore) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	s.deleted = append(s.deleted, bucket+"/"+key)
	return nil
}

func (s *memObjectStore) PresignGet(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://s3.test/%s/%s?expires=%d", bucket, key, int(ttl.Seconds())), nil
}

func (s *memObjectStore) PublicURL(bucket, key string) string {
	return "https://cdn.test/" + bucket + "/" + key
}

// fakeGateway stands in for Stripe.
type fakeGateway struct {
	customers     []string
	checkouts     []billing.CheckoutParams
	subscriptions map[string]*stripe.Subscription
	priceChanges  []string
	cancelCalls   []bool
	event         stripe.Event
	eventErr      error
	getErr        error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{subscriptions: map[string]*stripe.Subscription{}}
}

func (g *fakeGateway) CreateCustomer(_ context.Context, email, _, userID string) (string, error) {
	g.customers = append(g.customers, email)
	return "cus_" + userID, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, p billing.CheckoutParams) (*stripe.CheckoutSession, error) {
	g.checkouts = append(g.checkouts, p)
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (g *fakeGateway) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	sub, ok := g.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	return sub, nil
}

func (g *fakeGateway) ChangePrice(_ context.Context, sub *stripe.Subscription, priceID string) (*stripe.Subscription, error) {
	g.priceChanges = append(g.priceChanges, priceID)
	updated := *sub
	updated.Items = &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{ID: "si_1", Price: &stripe.Price{ID: priceID}}}}
	return &updated, nil
}

func (g *fakeGateway) SetCancelAtPeriodEnd(_ context.Context, id string, cancel bool) (*stripe.Subscription, error) {
	g.cancelCalls = append(g.cancelCalls, cancel)
	sub, ok := g.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	updated := *sub
	updated.CancelAtPeriodEnd = cancel
	return &updated, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}

func (g *fakeGateway) ConstructEvent(_ []byte, _ string) (stripe.Event, error) {
	return g.event, g.eventErr
}

func remoteSubscription(id, customerID, priceID string, status stripe.SubscriptionStatus) *stripe.Subscription {
	return &stripe.Subscription{
		ID:                 id,
		Customer:           &stripe.Customer{ID: customerID},
		Status:             status,
		CurrentPeriodStart: time.Now().Add(-time.Hour).Unix(),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour).Unix(),
		Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{
			ID:    "si_1",
			Price: &stripe.Price{ID: priceID},
		}}},
	}
}

type staticUsers struct {
	email string
	err   error
}

func (u staticUsers) PrimaryEmail(context.Context, string) (string, error) {
	return u.email, u.err
}

func testCatalog() *billing.Catalog {
	catalog, err := billing.LoadCatalog(map[string]string{
		"basic":    "price_basic",
		"standard": "price_standard",
		"premium":  "price_premium",
	})
	if err != nil {
		panic(err)
	}
	return catalog
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
