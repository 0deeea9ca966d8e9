package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	aws_pkg "marketplace-service/pkg/aws"
	"marketplace-service/repository"
	"marketplace-service/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ---- helpers ----

// clone deep copies a document through its BSON form, so fakes never share memory with callers.
func clone[T any](v *T) *T {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := bson.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

// applyUpdates applies a $set style update with dotted paths to a copy of doc.
func applyUpdates[T any](doc *T, updates bson.M) (*T, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for path, v := range updates {
		setPath(m, strings.Split(path, "."), v)
	}
	raw, err = bson.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := new(T)
	return out, bson.Unmarshal(raw, out)
}

func setPath(m bson.M, path []string, v interface{}) {
	if len(path) == 1 {
		m[path[0]] = v
		return
	}
	var child bson.M
	switch c := m[path[0]].(type) {
	case bson.M:
		child = c
	case primitive.D:
		child = c.Map()
	default:
		child = bson.M{}
	}
	setPath(child, path[1:], v)
	m[path[0]] = child
}

func principal(id primitive.ObjectID, role string) auth.Principal {
	return auth.Principal{UserID: id.Hex(), Email: id.Hex() + "@example.com", Role: role}
}

// ---- users ----

type memUsers struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	r := &memUsers{items: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		_ = r.Create(context.Background(), u)
	}
	return r
}

func (r *memUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.items[user.ID] = clone(user)
	return nil
}

func (r *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := r.FindByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUsers) List(_ context.Context, filter models.UserFilter, _ models.Page) ([]*models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.items {
		if filter.Role == "" || u.Role == filter.Role {
			out = append(out, clone(u))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memUsers) ListSellers(ctx context.Context) ([]*models.User, error) {
	users, _, err := r.List(ctx, models.UserFilter{Role: models.RoleSeller}, models.Page{})
	return users, err
}

func (r *memUsers) Update(_ context.Context, id primitive.ObjectID, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if name, ok := updates["username"]; ok {
		for oid, other := range r.items {
			if oid != id && other.Username == name {
				return repository.ErrDuplicate
			}
		}
	}
	updated, err := applyUpdates(u, updates)
	if err != nil {
		return err
	}
	r.items[id] = updated
	return nil
}

// ---- catalog ----

type memCategories struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Category
}

func newMemCategories(categories ...*models.Category) *memCategories {
	r := &memCategories{items: map[primitive.ObjectID]*models.Category{}}
	for _, c := range categories {
		_ = r.Create(context.Background(), c)
	}
	return r
}

func (r *memCategories) Create(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.items {
		if other.Name == c.Name || other.Slug == c.Slug {
			return repository.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.items[c.ID] = clone(c)
	return nil
}

func (r *memCategories) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(c), nil
}

func (r *memCategories) FindAll(_ context.Context, activeOnly bool) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Category
	for _, c := range r.items {
		if !activeOnly || c.Active {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCategories) Update(_ context.Context, id primitive.ObjectID, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	updated, err := applyUpdates(c, updates)
	if err != nil {
		return err
	}
	r.items[id] = updated
	return nil
}

func (r *memCategories) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type memBrands struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Brand
}

func newMemBrands(brands ...*models.Brand) *memBrands {
	r := &memBrands{items: map[primitive.ObjectID]*models.Brand{}}
	for _, b := range brands {
		_ = r.Create(context.Background(), b)
	}
	return r
}

func (r *memBrands) Create(_ context.Context, b *models.Brand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.items {
		if other.Name == b.Name {
			return repository.ErrDuplicate
		}
	}
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	r.items[b.ID] = clone(b)
	return nil
}

func (r *memBrands) FindByID(_ context.Context, id primitive.ObjectID) (*models.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(b), nil
}

func (r *memBrands) FindAll(_ context.Context) ([]*models.Brand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Brand
	for _, b := range r.items {
		out = append(out, clone(b))
	}
	return out, nil
}

func (r *memBrands) Update(_ context.Context, id primitive.ObjectID, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	updated, err := applyUpdates(b, updates)
	if err != nil {
		return err
	}
	r.items[id] = updated
	return nil
}

func (r *memBrands) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

// ---- products ----

type memProducts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Product
	// decrementErr, when set, fails DecrementStock for that product.
	decrementErr map[primitive.ObjectID]error
}

func newMemProducts(products ...*models.Product) *memProducts {
	r := &memProducts{
		items:        map[primitive.ObjectID]*models.Product{},
		decrementErr: map[primitive.ObjectID]error{},
	}
	for _, p := range products {
		_ = r.Create(context.Background(), p)
	}
	return r
}

func (r *memProducts) Create(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.items[p.ID] = clone(p)
	return nil
}

func (r *memProducts) get(id primitive.ObjectID) *models.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.items[id]; ok {
		return clone(p)
	}
	return nil
}

func (r *memProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	if p := r.get(id); p != nil {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memProducts) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Product, error) {
	var out []*models.Product
	for _, id := range ids {
		if p := r.get(id); p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProducts) all() []*models.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Product, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memProducts) Find(_ context.Context, filter models.ProductFilter, _ models.Page) ([]*models.Product, int64, error) {
	var out []*models.Product
	for _, p := range r.all() {
		if filter.Seller != nil && p.Seller != *filter.Seller {
			continue
		}
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *memProducts) FindByQuery(_ context.Context, query models.ProductQuery, limit int) ([]*models.Product, error) {
	products := r.all()
	switch query {
	case models.QueryBestSellers:
		sort.SliceStable(products, func(i, j int) bool { return products[i].SalesCount > products[j].SalesCount })
	case models.QueryFeatured:
		featured := products[:0]
		for _, p := range products {
			if p.IsFeatured {
				featured = append(featured, p)
			}
		}
		products = featured
	}
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (r *memProducts) CountByCategory(_ context.Context, category primitive.ObjectID) (int64, error) {
	var n int64
	for _, p := range r.all() {
		if p.Category == category {
			n++
		}
	}
	return n, nil
}

func (r *memProducts) Update(_ context.Context, id primitive.ObjectID, updates bson.M) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	updated, err := applyUpdates(p, updates)
	if err != nil {
		return err
	}
	r.items[id] = updated
	return nil
}

func (r *memProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memProducts) AddReview(_ context.Context, id primitive.ObjectID, review models.Review) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, rv := range p.Reviews {
		if rv.User == review.User {
			return nil, repository.ErrDuplicate
		}
	}
	p.Reviews = append(p.Reviews, review)
	p.RecomputeRating()
	return clone(p), nil
}

func (r *memProducts) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.decrementErr[id]; err != nil {
		return err
	}
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	p.SalesCount += qty
	return nil
}

func (r *memProducts) RestoreStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += qty
	p.SalesCount -= qty
	return nil
}

func (r *memProducts) AverageRatingBySeller(_ context.Context) (map[primitive.ObjectID]float64, error) {
	sum := map[primitive.ObjectID]float64{}
	n := map[primitive.ObjectID]float64{}
	for _, p := range r.all() {
		if p.NumReviews > 0 {
			sum[p.Seller] += p.Rating
			n[p.Seller]++
		}
	}
	out := map[primitive.ObjectID]float64{}
	for s, total := range sum {
		out[s] = total / n[s]
	}
	return out, nil
}

// ---- orders ----

type memOrders struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Order
	// conflicts makes the next N Replace calls fail with a version conflict.
	conflicts int
	replaces  int
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{items: map[primitive.ObjectID]*models.Order{}}
}

func (r *memOrders) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	o.Version = 1
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	r.items[o.ID] = clone(o)
	return nil
}

func (r *memOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(o), nil
}

func (r *memOrders) Find(_ context.Context, filter models.OrderFilter, _ models.Page) ([]*models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, o := range r.items {
		if filter.User != nil && o.User != *filter.User {
			continue
		}
		if filter.Seller != nil && !o.HasSeller(*filter.Seller) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, clone(o))
	}
	return out, int64(len(out)), nil
}

func (r *memOrders) FindDeliveredBySeller(ctx context.Context, seller primitive.ObjectID) ([]*models.Order, error) {
	orders, _, err := r.Find(ctx, models.OrderFilter{Seller: &seller}, models.Page{})
	var out []*models.Order
	for _, o := range orders {
		if o.IsDelivered {
			out = append(out, o)
		}
	}
	return out, err
}

func (r *memOrders) Replace(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaces++
	stored, ok := r.items[o.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		return repository.ErrVersionConflict
	}
	if stored.Version != o.Version {
		return repository.ErrVersionConflict
	}
	o.Version++
	r.items[o.ID] = clone(o)
	return nil
}

func (r *memOrders) PaymentClaimed(_ context.Context, paymentID string, except primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.items {
		if id != except && o.PaymentResult != nil && o.PaymentResult.ID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memOrders) DeliveredRevenueBySeller(_ context.Context) (map[primitive.ObjectID]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[primitive.ObjectID]float64{}
	for _, o := range r.items {
		if !o.IsDelivered {
			continue
		}
		for _, it := range o.OrderItems {
			out[it.Seller] += it.LineTotal()
		}
	}
	return out, nil
}

// ---- homepage ----

type memSections struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.HomePageSection
}

func newMemSections(sections ...*models.HomePageSection) *memSections {
	r := &memSections{items: map[primitive.ObjectID]*models.HomePageSection{}}
	for _, s := range sections {
		_ = r.Create(context.Background(), s)
	}
	return r
}

func (r *memSections) Create(_ context.Context, s *models.HomePageSection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	r.items[s.ID] = clone(s)
	return nil
}

func (r *memSections) FindByID(_ context.Context, id primitive.ObjectID) (*models.HomePageSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(s), nil
}

func (r *memSections) FindAll(_ context.Context, activeOnly bool) ([]*models.HomePageSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.HomePageSection
	for _, s := range r.items {
		if !activeOnly || s.Active {
			out = append(out, clone(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r *memSections) Replace(_ context.Context, s *models.HomePageSection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; !ok {
		return repository.ErrNotFound
	}
	r.items[s.ID] = clone(s)
	return nil
}

func (r *memSections) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memSections) NextOrder(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 0
	for _, s := range r.items {
		if s.Order >= next {
			next = s.Order + 1
		}
	}
	return next, nil
}

func (r *memSections) SetOrders(_ context.Context, ids []primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, id := range ids {
		s, ok := r.items[id]
		if !ok {
			return repository.ErrNotFound
		}
		s.Order = i
	}
	return nil
}

// ---- verification ----

type memApplications struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.SellerApplication
}

func newMemApplications() *memApplications {
	return &memApplications{items: map[primitive.ObjectID]*models.SellerApplication{}}
}

func (r *memApplications) Create(_ context.Context, a *models.SellerApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Status = models.RequestPending
	r.items[a.ID] = clone(a)
	return nil
}

func (r *memApplications) FindByID(_ context.Context, id primitive.ObjectID) (*models.SellerApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(a), nil
}

func (r *memApplications) FindByUser(_ context.Context, user primitive.ObjectID) ([]*models.SellerApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SellerApplication
	for _, a := range r.items {
		if a.User == user {
			out = append(out, clone(a))
		}
	}
	return out, nil
}

func (r *memApplications) HasPending(ctx context.Context, user primitive.ObjectID) (bool, error) {
	apps, _ := r.FindByUser(ctx, user)
	for _, a := range apps {
		if a.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memApplications) Find(_ context.Context, filter models.RequestFilter, _ models.Page) ([]*models.SellerApplication, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SellerApplication
	for _, a := range r.items {
		if filter.Status == "" || a.Status == filter.Status {
			out = append(out, clone(a))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memApplications) SetStatus(_ context.Context, id primitive.ObjectID, from, to models.RequestStatus, review models.ReviewInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != from {
		return repository.ErrVersionConflict
	}
	a.Status = to
	a.ReviewInfo = review
	return nil
}

type memVerifications struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.BrandVerification
}

func newMemVerifications() *memVerifications {
	return &memVerifications{items: map[primitive.ObjectID]*models.BrandVerification{}}
}

func (r *memVerifications) Create(_ context.Context, v *models.BrandVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	v.Status = models.RequestPending
	r.items[v.ID] = clone(v)
	return nil
}

func (r *memVerifications) FindByID(_ context.Context, id primitive.ObjectID) (*models.BrandVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(v), nil
}

func (r *memVerifications) FindByUser(_ context.Context, user primitive.ObjectID) ([]*models.BrandVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.BrandVerification
	for _, v := range r.items {
		if v.User == user {
			out = append(out, clone(v))
		}
	}
	return out, nil
}

func (r *memVerifications) HasPending(ctx context.Context, user primitive.ObjectID) (bool, error) {
	list, _ := r.FindByUser(ctx, user)
	for _, v := range list {
		if v.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memVerifications) Find(_ context.Context, filter models.RequestFilter, _ models.Page) ([]*models.BrandVerification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.BrandVerification
	for _, v := range r.items {
		if filter.Status == "" || v.Status == filter.Status {
			out = append(out, clone(v))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memVerifications) SetStatus(_ context.Context, id primitive.ObjectID, from, to models.RequestStatus, review models.ReviewInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v.Status != from {
		return repository.ErrVersionConflict
	}
	v.Status = to
	v.ReviewInfo = review
	return nil
}

// ---- notifications ----

type memNotifications struct {
	mu    sync.Mutex
	items []models.Notification
}

func (r *memNotifications) Create(_ context.Context, notifications ...*models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range notifications {
		n.ID = uint(len(r.items) + 1)
		r.items = append(r.items, *n)
	}
	return nil
}

func (r *memNotifications) List(_ context.Context, filter models.NotificationFilter) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.items {
		if n.UserID == filter.UserID && (!filter.UnreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memNotifications) CountUnread(ctx context.Context, userID string) (int64, error) {
	_, n, err := r.List(ctx, models.NotificationFilter{UserID: userID, UnreadOnly: true})
	return n, err
}

func (r *memNotifications) MarkRead(_ context.Context, userID string, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.items {
		if r.items[i].UserID == userID && !r.items[i].Read {
			r.items[i].Read = true
			n++
		}
	}
	return n, nil
}

// ---- collaborators ----

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []models.Event
}

func (p *recordingPublisher) Publish(topic string, event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
}

func (p *recordingPublisher) published(topic string) []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Event
	for i, t := range p.topics {
		if t == topic {
			out = append(out, p.events[i])
		}
	}
	return out
}

type memCache struct {
	mu       sync.Mutex
	values   map[string][]byte
	versions map[string]int64
}

func newMemCache() *memCache {
	return &memCache{values: map[string][]byte{}, versions: map[string]int64{}}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
}

func (c *memCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
}

func (c *memCache) Version(_ context.Context, ns string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[ns]
}

func (c *memCache) Bump(_ context.Context, ns string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[ns]++
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Generate(p auth.Principal) (string, time.Time, error) {
	return "token-" + p.UserID, time.Now().Add(time.Hour), nil
}

// fakePayments reports details for every payment id; a nil details means the lookup fails with err.
type fakePayments struct {
	details *services.PaymentDetails
	err     error
}

func settled(amount int64) fakePayments {
	return fakePayments{details: &services.PaymentDetails{Succeeded: true, Amount: amount, Currency: "usd"}}
}

func (f fakePayments) LookupPayment(context.Context, string) (*services.PaymentDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := *f.details
	return &d, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// failAfter makes every upload after the first N fail.
	failAfter int
	uploads   int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, failAfter: -1}
}

func (s *memStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.failAfter >= 0 && s.uploads > s.failAfter {
		return "", errors.New("s3 unavailable")
	}
	s.objects[key] = data
	return s.URL(key), nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) List(_ context.Context, prefix string) ([]aws_pkg.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []aws_pkg.ObjectInfo
	for k, v := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, aws_pkg.ObjectInfo{Key: k, URL: s.URL(k), Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memStore) PresignPut(_ context.Context, key, contentType string, _ time.Duration) (string, map[string]string, error) {
	return "https://signed.example.com/" + key, map[string]string{"Content-Type": contentType}, nil
}

func (s *memStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key + "?sig=1", nil
}

func (s *memStore) URL(key string) string {
	return "https://cdn.example.com/" + key
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
