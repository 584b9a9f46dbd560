package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// Category names one of the independent substance domains.
type Category string

// Kind is the product type of an entry within its category.
type Kind string

const (
	Marijuana Category = "marijuana"
	Nicotine  Category = "nicotine"
)

const (
	Flower     Kind = "flower"
	Tincture   Kind = "tincture"
	DayGummy   Kind = "day gummy"
	NightGummy Kind = "night gummy"
	Oil        Kind = "oil"

	Gum     Kind = "gum"
	Lozenge Kind = "lozenge"
	Pouch   Kind = "pouch"
)

// Descriptor holds everything that differs between categories, so the
// store, aggregator and form logic are written once.
type Descriptor struct {
	Category Category
	Short    string
	Kinds    []Kind
	Amounts  []int
}

var descriptors = []Descriptor{
	{
		Category: Marijuana,
		Short:    "mj",
		Kinds:    []Kind{Flower, Tincture, DayGummy, NightGummy, Oil},
		Amounts:  steps(5, 50, 5),
	},
	{
		Category: Nicotine,
		Short:    "nic",
		Kinds:    []Kind{Gum, Lozenge, Pouch},
		Amounts:  steps(1, 10, 1),
	},
}

func steps(from, to, step int) []int {
	var out []int
	for v := from; v <= to; v += step {
		out = append(out, v)
	}
	return out
}

// Categories returns every known category in display order.
func Categories() []Category {
	out := make([]Category, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Category
	}
	return out
}

// Describe returns the descriptor for c.
func Describe(c Category) (Descriptor, error) {
	for _, d := range descriptors {
		if d.Category == c {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
}

// ParseCategory accepts a category name or its short tab prefix (mj, nic).
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range descriptors {
		if s == string(d.Category) || s == d.Short {
			return d.Category, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// ParseKind matches s case-insensitively against the category's kinds.
func (d Descriptor) ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.Join(strings.Fields(s), " ")))
	if err := d.ValidateKind(k); err != nil {
		return "", err
	}
	return k, nil
}

// ValidateKind fails with ErrInvalidCategory when k is not one of d's kinds.
func (d Descriptor) ValidateKind(k Kind) error {
	for _, known := range d.Kinds {
		if k == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not a %s type", ErrInvalidCategory, string(k), d.Category)
}

// ValidateAmount fails with ErrInvalidAmount when mg is not in the allowed
// set. Out-of-set values are rejected, never clamped.
func (d Descriptor) ValidateAmount(mg int) error {
	for _, a := range d.Amounts {
		if mg == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %d mg is not allowed for %s", ErrInvalidAmount, mg, d.Category)
}

// Validate checks the entry's category, kind and amount.
func (e Entry) Validate() error {
	d, err := Describe(e.Category)
	if err != nil {
		return err
	}
	if err := d.ValidateKind(e.Kind); err != nil {
		return err
	}
	return d.ValidateAmount(e.Amount)
}
