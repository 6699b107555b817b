package pos

import (
	"context"
	"errors"
	"fmt"
)

// GetCart returns the table's cart, or an empty one when none is stored.
func (s *Service) GetCart(ctx context.Context, number int) (*Cart, error) {
	c, err := s.store.GetCart(ctx, number)
	if errors.Is(err, ErrNotFound) {
		return NewCart(number), nil
	}
	return c, err
}

func (s *Service) AddCartLine(ctx context.Context, number int, kind Kind, in LineInput) (*Cart, error) {
	if !kind.Valid() {
		return nil, invalid("unknown item kind %q", kind)
	}
	if _, err := s.store.GetTableByNumber(ctx, number); err != nil {
		return nil, err
	}
	line, err := s.buildLine(ctx, kind, in)
	if err != nil {
		return nil, err
	}
	c, err := s.GetCart(ctx, number)
	if err != nil {
		return nil, err
	}
	c.Add(line, s.now())
	if err := s.store.SaveCart(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart %d: %w", number, err)
	}
	s.publish(EventCartUpdated, c)
	return c, nil
}

// RemoveCartLine takes one unit off a cart line. An emptied cart is deleted.
func (s *Service) RemoveCartLine(ctx context.Context, number int, lineID string) (*Cart, error) {
	c, err := s.store.GetCart(ctx, number)
	if err != nil {
		return nil, err
	}
	empty, err := c.Remove(lineID, s.now())
	if err != nil {
		return nil, err
	}
	if empty {
		if err := s.store.DeleteCart(ctx, number); err != nil {
			return nil, fmt.Errorf("delete cart %d: %w", number, err)
		}
	} else if err := s.store.SaveCart(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart %d: %w", number, err)
	}
	s.publish(EventCartUpdated, c)
	return c, nil
}

func (s *Service) ClearCart(ctx context.Context, number int) error {
	if err := s.store.DeleteCart(ctx, number); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	s.publish(EventCartUpdated, NewCart(number))
	return nil
}

// SubmitCart sends the cart as one dish order and one drink order, whichever have
// lines, and deletes the cart. Lines are re-priced against the catalog.
func (s *Service) SubmitCart(ctx context.Context, number int) ([]*Order, error) {
	c, err := s.store.GetCart(ctx, number)
	if err != nil {
		return nil, err
	}
	dishes, drinks := c.Split()

	var orders []*Order
	for _, group := range []struct {
		kind  Kind
		lines []Line
	}{{KindDish, dishes}, {KindDrink, drinks}} {
		if len(group.lines) == 0 {
			continue
		}
		in := OrderInput{Kind: group.kind}
		for _, l := range group.lines {
			in.Lines = append(in.Lines, LineInput{
				ItemID:     l.ItemID,
				Quantity:   l.Quantity,
				Selections: l.Selections,
				Dish:       l.Dish,
				Drink:      l.Drink,
			})
		}
		change, err := s.CreateOrder(ctx, number, in)
		if err != nil {
			if len(orders) > 0 {
				return nil, &PartialFailureError{Op: fmt.Sprintf("submit cart %d", number), Step: "create " + string(group.kind) + " order", Err: err}
			}
			return nil, err
		}
		orders = append(orders, change.Order)
	}

	if err := s.store.DeleteCart(ctx, number); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, &PartialFailureError{Op: fmt.Sprintf("submit cart %d", number), Step: "delete cart", Err: err}
	}
	s.publish(EventCartUpdated, NewCart(number))
	return orders, nil
}
