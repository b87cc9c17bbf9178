package domain

import (
	"time"

	"github.com/fjod/storefront/pkg/pricing"
)

// Product is the catalog snapshot copied into a cart line.
type Product struct {
	ID          string  `json:"id" bson:"id"`
	Name        string  `json:"name" bson:"name"`
	Price       float64 `json:"price" bson:"price"`
	Image       string  `json:"image,omitempty" bson:"image,omitempty"`
	Description string  `json:"description,omitempty" bson:"description,omitempty"`
}

type CartItem struct {
	Product  Product   `json:"product" bson:"product"`
	Quantity int       `json:"quantity" bson:"quantity"`
	Size     string    `json:"size,omitempty" bson:"size,omitempty"`
	Color    string    `json:"color,omitempty" bson:"color,omitempty"`
	AddedAt  time.Time `json:"added_at" bson:"added_at"`
}

func (i CartItem) sameLine(productID, size, color string) bool {
	return i.Product.ID == productID && i.Size == size && i.Color == color
}

// Policy carries the pricing knobs the totals depend on.
type Policy struct {
	FlatShipping float64
	TaxRate      float64
}

var DefaultPolicy = Policy{FlatShipping: 30, TaxRate: pricing.DefaultTaxRate}

// Cart is the line items plus totals derived after every mutation.
// Total == Subtotal + Shipping + Tax - Discount.
type Cart struct {
	ID        string     `json:"id" bson:"_id"`
	Items     []CartItem `json:"items" bson:"items"`
	Subtotal  float64    `json:"subtotal" bson:"subtotal"`
	Shipping  float64    `json:"shipping" bson:"shipping"`
	Tax       float64    `json:"tax" bson:"tax"`
	Discount  float64    `json:"discount" bson:"discount"`
	Total     float64    `json:"total" bson:"total"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`

	Policy Policy `json:"-" bson:"-"`
}

func New(id string, policy Policy) *Cart {
	now := time.Now()
	return &Cart{
		ID:        id,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
		Policy:    policy,
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem merges into the line with the same (product id, size, color) or
// appends a new line.
func (c *Cart) AddItem(product Product, quantity int, size, color string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].sameLine(product.ID, size, color) {
			c.Items[i].Quantity += quantity
			c.touch()
			return nil
		}
	}
	c.Items = append(c.Items, CartItem{
		Product:  product,
		Quantity: quantity,
		Size:     size,
		Color:    color,
		AddedAt:  time.Now(),
	})
	c.touch()
	return nil
}

func (c *Cart) RemoveItem(index int) error {
	if index < 0 || index >= len(c.Items) {
		return ErrLineNotFound
	}
	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	c.touch()
	return nil
}

// UpdateQuantity sets the quantity of a line; quantity <= 0 removes it.
func (c *Cart) UpdateQuantity(index, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(index)
	}
	if index < 0 || index >= len(c.Items) {
		return ErrLineNotFound
	}
	c.Items[index].Quantity = quantity
	c.touch()
	return nil
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Discount = 0
	c.touch()
}

// SetDiscount applies an already validated discount amount. It is capped at
// the subtotal so the taxable base never goes negative.
func (c *Cart) SetDiscount(amount float64) error {
	if amount < 0 {
		return ErrInvalidDiscount
	}
	c.Discount = amount
	c.touch()
	return nil
}

// Recalculate derives subtotal, shipping, tax and total from the lines.
func (c *Cart) Recalculate() {
	lines := make([]pricing.Line, len(c.Items))
	for i, item := range c.Items {
		lines[i] = pricing.Line{UnitPrice: item.Product.Price, Quantity: item.Quantity}
	}
	subtotal := pricing.Subtotal(lines)

	shipping := 0.0
	if !c.IsEmpty() {
		shipping = c.Policy.FlatShipping
	}
	if c.Discount > subtotal {
		c.Discount = subtotal
	}

	t := pricing.ComputeTotals(subtotal, shipping, c.Discount, c.Policy.TaxRate)
	c.Subtotal = t.Subtotal
	c.Shipping = t.Shipping
	c.Tax = t.Tax
	c.Total = t.Total
}

// Clone returns a deep copy safe to hand outside a store.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
	c.Recalculate()
}
