// Package detail assembles the product page and turns a size/colour selection
// into a cart line or a direct purchase.
package detail

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/contact"
	"github.com/fjod/go_storefront/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const productFetchTimeout = 5 * time.Second

type Products interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	Find(ctx context.Context, q catalog.Query) ([]domain.Product, error)
}

type CartAdder interface {
	Add(ctx context.Context, sessionID string, req cart.AddRequest) (*domain.Cart, error)
}

type Assembler struct {
	products Products
	carts    CartAdder
	slot     cache.PurchaseSlot
	linker   *contact.Linker
	sfg      singleflight.Group
	log      *zap.Logger
	shuffle  func([]domain.Product)
	now      func() time.Time

	fetchTimeout time.Duration
}

func NewAssembler(products Products, carts CartAdder, slot cache.PurchaseSlot, linker *contact.Linker, log *zap.Logger) *Assembler {
	return &Assembler{
		products: products,
		carts:    carts,
		slot:     slot,
		linker:   linker,
		log:      log,
		shuffle:  Shuffle,
		now:      time.Now,

		fetchTimeout: productFetchTimeout,
	}
}

// View is the product page.
type View struct {
	Product       *domain.Product
	SelectedSize  string
	SelectedColor string
	Related       []domain.Product
	EnquiryURL    string
}

type Selection struct {
	Size  string `json:"size"`
	Color string `json:"color"`
}

// Load fetches the product and a freshly shuffled sample of its category.
// Any failure to fetch the product itself is reported as ErrRedirect.
func (a *Assembler) Load(ctx context.Context, id string) (*View, error) {
	p, err := a.product(ctx, id)
	if err != nil {
		return nil, err
	}

	v := &View{Product: p, Related: a.related(ctx, p)}
	if len(p.Sizes) > 0 {
		v.SelectedSize = p.Sizes[0]
	}
	if len(p.Colors) > 0 {
		v.SelectedColor = p.Colors[0]
	}
	if v.SelectedSize != "" && v.SelectedColor != "" {
		v.EnquiryURL = a.EnquiryLink(p, Selection{Size: v.SelectedSize, Color: v.SelectedColor})
	}
	return v, nil
}

// AddToCart adds one unit of the selection at the product's current final price.
func (a *Assembler) AddToCart(ctx context.Context, sessionID, productID string, sel Selection) (*domain.Cart, error) {
	p, err := a.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkSelection(p, sel, 1); err != nil {
		return nil, err
	}

	c, err := a.carts.Add(ctx, sessionID, addRequest(p, sel, 1))
	if err != nil {
		return nil, err
	}
	a.log.Info("added to cart",
		zap.String("session_id", sessionID),
		zap.String("product_id", p.ID),
		zap.String("size", sel.Size),
		zap.String("color", sel.Color))
	return c, nil
}

// BuyNow fills the session's direct-purchase slot, replacing any pending one.
// The cart is left untouched.
func (a *Assembler) BuyNow(ctx context.Context, sessionID, productID string, sel Selection, qty int) (*domain.DirectPurchase, error) {
	p, err := a.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkSelection(p, sel, qty); err != nil {
		return nil, err
	}

	purchase := &domain.DirectPurchase{
		Item:      addRequest(p, sel, qty).LineItem(),
		CreatedAt: a.now().UTC(),
	}
	if err := a.slot.Put(ctx, sessionID, purchase); err != nil {
		return nil, err
	}
	a.log.Info("direct purchase pending",
		zap.String("session_id", sessionID),
		zap.String("product_id", p.ID),
		zap.Int("quantity", qty))
	return purchase, nil
}

// EnquiryLink opens a chat asking about the product in the selected size and colour.
func (a *Assembler) EnquiryLink(p *domain.Product, sel Selection) string {
	return a.linker.Link(contact.EnquiryMessage(p.Name, sel.Size, sel.Color, p.FinalPrice))
}

// product collapses concurrent fetches of the same id. The shared fetch runs
// on a context detached from whichever caller started it, so one caller
// going away does not fail the others.
func (a *Assembler) product(ctx context.Context, id string) (*domain.Product, error) {
	ch := a.sfg.DoChan(id, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.fetchTimeout)
		defer cancel()
		return a.products.Get(fetchCtx, id)
	})

	var (
		v   interface{}
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		a.log.Warn("product fetch failed", zap.String("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRedirect, err)
	}
	return v.(*domain.Product), nil
}

// related never fails the page; without related products the list is empty.
func (a *Assembler) related(ctx context.Context, p *domain.Product) []domain.Product {
	products, err := a.products.Find(ctx, catalog.RelatedQuery(p))
	if err != nil {
		a.log.Warn("related products fetch failed", zap.String("product_id", p.ID), zap.Error(err))
		return []domain.Product{}
	}
	a.shuffle(products)
	return products
}

func checkSelection(p *domain.Product, sel Selection, qty int) error {
	if p.Stock <= 0 {
		return ErrOutOfStock
	}
	if len(p.Sizes) == 0 || len(p.Colors) == 0 {
		return ErrIncompleteCatalog
	}
	if sel.Size == "" {
		return domain.ErrSizeRequired
	}
	if sel.Color == "" {
		return domain.ErrColorRequired
	}
	if !p.HasSize(sel.Size) {
		return ErrUnknownSize
	}
	if !p.HasColor(sel.Color) {
		return ErrUnknownColor
	}
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	if qty > p.Stock {
		return ErrNotEnoughStock
	}
	return nil
}

func addRequest(p *domain.Product, sel Selection, qty int) cart.AddRequest {
	return cart.AddRequest{
		ProductID: p.ID,
		Size:      sel.Size,
		Color:     sel.Color,
		UnitPrice: p.FinalPrice,
		Quantity:  qty,
		Name:      p.Name,
		PhotoURL:  p.PhotoURL,
		Category:  p.Category,
	}
}

// Shuffle is an unbiased Fisher-Yates permutation in place.
func Shuffle(products []domain.Product) {
	for i := len(products) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		products[i], products[j] = products[j], products[i]
	}
}
