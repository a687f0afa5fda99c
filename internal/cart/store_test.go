package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/broadcast"
	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/contact"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepository struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
	saves int
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: make(map[string]*domain.Cart)}
}

func copyCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.LineItem(nil), c.Items...)
	return &out
}

func (m *mockRepository) GetCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (m *mockRepository) UpsertCart(_ context.Context, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.carts[c.SessionID] = copyCart(c)
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.carts[sessionID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, sessionID)
	return nil
}

func (m *mockRepository) setErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.err = err
}

type mockCache struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, sessionID string, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[sessionID] = c
	return nil
}

func (m *mockCache) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func (m *mockCache) has(sessionID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[sessionID]
	return ok
}

func setupStore(t *testing.T) (*Store, *mockRepository, *mockCache, *broadcast.Broadcaster) {
	t.Helper()
	repo := newMockRepository()
	c := newMockCache()
	events := broadcast.New()
	return NewStore(repo, c, events, zap.NewNop()), repo, c, events
}

func dress(id, size, color, price string) AddRequest {
	return AddRequest{
		ProductID: id,
		Size:      size,
		Color:     color,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  1,
		Name:      id,
		Category:  domain.CategoryWedding,
	}
}

func TestAdd_SameKeyMerges(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)
	cart, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "378", cart.Total().String())
}

func TestAdd_DifferentKeysAppendInOrder(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)
	_, err = store.Add(ctx, "s1", dress("aurora", "M", "Rosa", "189"))
	require.NoError(t, err)
	withQty := dress("olivia", "M", "Negro", "129.99")
	withQty.Quantity = 3
	cart, err := store.Add(ctx, "s1", withQty)
	require.NoError(t, err)

	require.Len(t, cart.Items, 3)
	assert.Equal(t, "S", cart.Items[0].Size)
	assert.Equal(t, "M", cart.Items[1].Size)
	assert.Equal(t, "olivia", cart.Items[2].ProductID)
	assert.Equal(t, 3, cart.Items[2].Quantity)
	assert.Equal(t, 5, cart.Count())
}

func TestAdd_ValidationLeavesStateUnchanged(t *testing.T) {
	store, repo, _, events := setupStore(t)
	ctx := context.Background()

	signals, cancel := events.Subscribe("s1")
	defer cancel()

	noSize := dress("aurora", "", "Rosa", "189")
	_, err := store.Add(ctx, "s1", noSize)
	assert.ErrorIs(t, err, domain.ErrSizeRequired)

	noColor := dress("aurora", "S", "", "189")
	_, err = store.Add(ctx, "s1", noColor)
	assert.ErrorIs(t, err, domain.ErrColorRequired)

	zero := dress("aurora", "S", "Rosa", "189")
	zero.Quantity = 0
	_, err = store.Add(ctx, "s1", zero)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	assert.Equal(t, 0, repo.saves)
	select {
	case <-signals:
		t.Fatal("rejected add must not notify")
	default:
	}
}

func TestDecrement_AtOneRemovesLine(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)
	_, err = store.Add(ctx, "s1", dress("olivia", "M", "Negro", "129.99"))
	require.NoError(t, err)

	cart, err := store.Increment(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[1].Quantity)

	cart, err = store.Decrement(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[1].Quantity)

	cart, err = store.Decrement(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "olivia", cart.Items[0].ProductID)
}

func TestIndexOutOfRange(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)

	for _, idx := range []int{-1, 1, 7} {
		_, err = store.Increment(ctx, "s1", idx)
		assert.ErrorIs(t, err, ErrLineNotFound)
		_, err = store.Decrement(ctx, "s1", idx)
		assert.ErrorIs(t, err, ErrLineNotFound)
		_, err = store.Remove(ctx, "s1", idx)
		assert.ErrorIs(t, err, ErrLineNotFound)
	}

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Count())
}

func TestRemove(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()

	big := dress("aurora", "S", "Rosa", "189")
	big.Quantity = 4
	_, err := store.Add(ctx, "s1", big)
	require.NoError(t, err)

	cart, err := store.Remove(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total().IsZero())
}

func TestClear_RequiresConfirmation(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)

	require.ErrorIs(t, store.Clear(ctx, "s1", false), ErrConfirmationRequired)
	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	require.NoError(t, store.Clear(ctx, "s1", true))
	cart, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// clearing an already empty cart is fine
	require.NoError(t, store.Clear(ctx, "s1", true))
}

func TestRemovePurchased_KeepsLinesAddedAfterSnapshot(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()

	two := dress("aurora", "S", "Rosa", "189")
	two.Quantity = 2
	_, err := store.Add(ctx, "s1", two)
	require.NoError(t, err)
	_, err = store.Add(ctx, "s1", dress("olivia", "M", "Negro", "129.99"))
	require.NoError(t, err)
	snapshot, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	// the buyer keeps shopping while the payment page is open
	_, err = store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)
	_, err = store.Add(ctx, "s1", dress("celeste", "L", "Azul", "176"))
	require.NoError(t, err)

	cart, err := store.RemovePurchased(ctx, "s1", snapshot.Items)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, "aurora", cart.Items[0].ProductID)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, "celeste", cart.Items[1].ProductID)

	// a line the buyer already removed is simply absent
	cart, err = store.RemovePurchased(ctx, "s1", snapshot.Items)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "celeste", cart.Items[0].ProductID)
}

func TestEveryMutationNotifies(t *testing.T) {
	store, _, _, events := setupStore(t)
	ctx := context.Background()

	signals, cancel := events.Subscribe("s1")
	defer cancel()

	expectSignal := func(op string) {
		t.Helper()
		select {
		case <-signals:
		case <-time.After(time.Second):
			t.Fatalf("%s did not notify", op)
		}
	}

	_, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)
	expectSignal("add")

	_, err = store.Increment(ctx, "s1", 0)
	require.NoError(t, err)
	expectSignal("increment")

	_, err = store.Decrement(ctx, "s1", 0)
	require.NoError(t, err)
	expectSignal("decrement")

	_, err = store.Remove(ctx, "s1", 0)
	require.NoError(t, err)
	expectSignal("remove")

	require.NoError(t, store.Clear(ctx, "s1", true))
	expectSignal("clear")
}

func TestGet_FillsAndMutationInvalidatesCache(t *testing.T) {
	store, _, c, _ := setupStore(t)
	ctx := context.Background()

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, c.has("s1"))

	_, err = store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)
	assert.False(t, c.has("s1"))

	cart, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestRepositoryErrorPropagates(t *testing.T) {
	store, repo, _, _ := setupStore(t)
	ctx := context.Background()
	boom := errors.New("mongo down")
	repo.setErr(boom)

	_, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	assert.ErrorIs(t, err, boom)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, store.Clear(ctx, "s1", true), boom)
}

func TestConcurrentIncrementsAreSerialized(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "s1", dress("aurora", "S", "Rosa", "189"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(ctx, "s1", 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 51, cart.Items[0].Quantity)
	assert.Equal(t, 0, store.locks.len())
}

// The total always equals the sum of unit price times quantity and no line
// ever reaches quantity zero, whatever the sequence of operations.
func TestTotalMatchesLinesForRandomOperations(t *testing.T) {
	store, _, _, _ := setupStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	catalog := []AddRequest{
		dress("aurora", "S", "Rosa", "189"),
		dress("celeste", "M", "Azul", "176"),
		dress("olivia", "L", "Rojo", "129.99"),
		dress("marina", "XS", "Verde", "89.10"),
	}

	for step := 0; step < 300; step++ {
		cart, err := store.Get(ctx, "s1")
		require.NoError(t, err)
		n := len(cart.Items)

		switch op := rng.Intn(4); {
		case op == 0 || n == 0:
			req := catalog[rng.Intn(len(catalog))]
			req.Quantity = 1 + rng.Intn(3)
			_, err = store.Add(ctx, "s1", req)
		case op == 1:
			_, err = store.Increment(ctx, "s1", rng.Intn(n))
		case op == 2:
			_, err = store.Decrement(ctx, "s1", rng.Intn(n))
		default:
			_, err = store.Remove(ctx, "s1", rng.Intn(n))
		}
		require.NoError(t, err)

		cart, err = store.Get(ctx, "s1")
		require.NoError(t, err)
		want := decimal.Zero
		seen := map[domain.LineKey]bool{}
		for _, item := range cart.Items {
			require.Positive(t, item.Quantity)
			require.False(t, seen[item.Key()], "duplicate line %v", item.Key())
			seen[item.Key()] = true
			want = want.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		require.True(t, want.Equal(cart.Total()), "step %d: want %s got %s", step, want, cart.Total())
	}
}

func TestContactLink(t *testing.T) {
	linker := contact.NewLinker("")

	_, err := ContactLink(linker, &domain.Cart{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	link, err := ContactLink(linker, &domain.Cart{Items: []domain.LineItem{
		{Name: "Aurora", Size: "S", Color: "Rosa", UnitPrice: decimal.NewFromInt(189), Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Contains(t, link, "https://wa.me/34664123153?text=")
}
