package http

import (
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/detail"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Money is an amount as a fixed two-decimal string plus its display form.
type Money struct {
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

func money(d decimal.Decimal) Money {
	return Money{Amount: d.StringFixed(2), Display: domain.FormatEUR(d)}
}

type ProductResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	OriginalPrice   Money     `json:"original_price"`
	DiscountPercent int       `json:"discount_percent"`
	FinalPrice      Money     `json:"final_price"`
	Sizes           []string  `json:"sizes"`
	Colors          []string  `json:"colors"`
	Stock           int       `json:"stock"`
	PhotoURL        string    `json:"photo_url"`
	Description     string    `json:"description"`
	OnSale          bool      `json:"on_sale"`
	CreatedAt       time.Time `json:"created_at"`
}

func productResponse(p *domain.Product) ProductResponse {
	sizes, colors := p.Sizes, p.Colors
	if sizes == nil {
		sizes = []string{}
	}
	if colors == nil {
		colors = []string{}
	}
	return ProductResponse{
		ID:              p.ID,
		Name:            p.Name,
		Category:        string(p.Category),
		OriginalPrice:   money(p.OriginalPrice),
		DiscountPercent: p.DiscountPercent,
		FinalPrice:      money(p.FinalPrice),
		Sizes:           sizes,
		Colors:          colors,
		Stock:           p.Stock,
		PhotoURL:        p.PhotoURL,
		Description:     p.Description,
		OnSale:          p.OnSale,
		CreatedAt:       p.CreatedAt,
	}
}

func productsResponse(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = productResponse(&products[i])
	}
	return out
}

type FilterResponse struct {
	Category   string `json:"category,omitempty"`
	Color      string `json:"color,omitempty"`
	Size       string `json:"size,omitempty"`
	PriceMin   string `json:"price_min"`
	PriceMax   string `json:"price_max"`
	OnSaleOnly bool   `json:"on_sale_only"`
	Sort       string `json:"sort"`
}

type CatalogResponse struct {
	Filter   FilterResponse    `json:"filter"`
	Products []ProductResponse `json:"products"`
	Empty    bool              `json:"empty"`
	Sequence uint64            `json:"sequence"`
	Stale    bool              `json:"stale"`
	Error    string            `json:"error,omitempty"`
}

func catalogResponse(res catalog.Result) CatalogResponse {
	f := res.Filter
	return CatalogResponse{
		Filter: FilterResponse{
			Category:   string(f.Category),
			Color:      f.Color,
			Size:       f.Size,
			PriceMin:   f.PriceMin.String(),
			PriceMax:   f.PriceMax.String(),
			OnSaleOnly: f.OnSaleOnly,
			Sort:       string(f.Sort),
		},
		Products: productsResponse(res.Products),
		Empty:    len(res.Products) == 0,
		Sequence: res.Sequence,
		Stale:    res.Stale,
	}
}

type DetailResponse struct {
	Product       ProductResponse   `json:"product"`
	SelectedSize  string            `json:"selected_size"`
	SelectedColor string            `json:"selected_color"`
	Related       []ProductResponse `json:"related"`
	EnquiryURL    string            `json:"enquiry_url,omitempty"`
}

func detailResponse(v *detail.View) DetailResponse {
	return DetailResponse{
		Product:       productResponse(v.Product),
		SelectedSize:  v.SelectedSize,
		SelectedColor: v.SelectedColor,
		Related:       productsResponse(v.Related),
		EnquiryURL:    v.EnquiryURL,
	}
}

type LineResponse struct {
	Index     int    `json:"index"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Category  string `json:"category"`
	PhotoURL  string `json:"photo_url"`
	UnitPrice Money  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal Money  `json:"line_total"`
}

func linesResponse(items []domain.LineItem) []LineResponse {
	out := make([]LineResponse, len(items))
	for i, item := range items {
		out[i] = LineResponse{
			Index:     i,
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Color:     item.Color,
			Category:  string(item.Category),
			PhotoURL:  item.PhotoURL,
			UnitPrice: money(item.UnitPrice),
			Quantity:  item.Quantity,
			LineTotal: money(item.LineTotal()),
		}
	}
	return out
}

type CartResponse struct {
	Items []LineResponse `json:"items"`
	Count int            `json:"count"`
	Total Money          `json:"total"`
}

func cartResponse(c *domain.Cart) CartResponse {
	return CartResponse{
		Items: linesResponse(c.Items),
		Count: c.Count(),
		Total: money(c.Total()),
	}
}

type CountResponse struct {
	Count int `json:"count"`
}

type DirectPurchaseResponse struct {
	Item        LineResponse `json:"item"`
	CheckoutURL string       `json:"checkout_url"`
}

type OrderResponse struct {
	CheckoutID string         `json:"checkout_id"`
	Source     string         `json:"source"`
	Items      []LineResponse `json:"items"`
	Subtotal   Money          `json:"subtotal"`
}

func orderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		CheckoutID: o.CheckoutID,
		Source:     string(o.Source),
		Items:      linesResponse(o.Items),
		Subtotal:   money(o.Subtotal()),
	}
}

type ShippingResponse struct {
	Amount        *Money `json:"amount,omitempty"`
	QuoteRequired bool   `json:"quote_required"`
	Display       string `json:"display"`
}

type FreeShippingResponse struct {
	Threshold Money `json:"threshold"`
	Remaining Money `json:"remaining"`
}

type SummaryResponse struct {
	Order        OrderResponse         `json:"order"`
	Subtotal     Money                 `json:"subtotal"`
	Shipping     ShippingResponse      `json:"shipping"`
	GrandTotal   Money                 `json:"grand_total"`
	FormComplete bool                  `json:"form_complete"`
	Missing      []string              `json:"missing,omitempty"`
	PayEnabled   bool                  `json:"pay_enabled"`
	Path         string                `json:"path,omitempty"`
	ContactURL   string                `json:"contact_url,omitempty"`
	FreeShipping *FreeShippingResponse `json:"free_shipping,omitempty"`
}

func summaryResponse(s checkout.Summary) SummaryResponse {
	resp := SummaryResponse{
		Order:        orderResponse(s.Order),
		Subtotal:     money(s.Subtotal),
		Shipping:     ShippingResponse{QuoteRequired: s.Shipping.QuoteRequired, Display: s.Shipping.String()},
		GrandTotal:   money(s.GrandTotal),
		FormComplete: s.FormComplete,
		Missing:      s.Missing,
		PayEnabled:   s.PayEnabled,
		Path:         string(s.Path),
		ContactURL:   s.ContactURL,
	}
	if !s.Shipping.QuoteRequired {
		amount := money(s.Shipping.Amount)
		resp.Shipping.Amount = &amount
	}
	if s.FreeShipping != nil {
		resp.FreeShipping = &FreeShippingResponse{
			Threshold: money(s.FreeShipping.Threshold),
			Remaining: money(s.FreeShipping.Remaining),
		}
	}
	return resp
}

type ProceedResponse struct {
	Path        string          `json:"path"`
	RedirectURL string          `json:"redirect_url"`
	Summary     SummaryResponse `json:"summary"`
}

type ContactResponse struct {
	URL string `json:"url"`
}

type UploadResponse struct {
	URL string `json:"url"`
}
