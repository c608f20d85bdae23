package vior

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"

	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
	"github.com/viorhealth/pos-terminal/internal/wire"
)

const (
	productsPath  = "/inventory/products/"
	testTypesPath = "/laboratory/test-types/"
)

// FetchCatalog loads products and lab test types concurrently and merges
// them into one item list. Filtering down to purchasable items is the
// caller's concern (catalog.Purchasable).
func (c *Client) FetchCatalog(ctx context.Context) ([]catalog.Item, error) {
	var products, tests []catalog.Item

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = c.fetchItems(ctx, productsPath, decodeProduct)
		return errors.Wrap(err, "fetch products")
	})
	g.Go(func() error {
		var err error
		tests, err = c.fetchItems(ctx, testTypesPath, decodeTestType)
		return errors.Wrap(err, "fetch test types")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(products, tests...), nil
}

// Ping reports backend reachability. Any HTTP response counts as reachable;
// readiness only cares about connectivity, not auth state.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, http.MethodHead, productsPath, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return nil
	}
	return err
}

func (c *Client) fetchItems(ctx context.Context, path string, decode func(d *jx.Decoder) (catalog.Item, error)) ([]catalog.Item, error) {
	var items []catalog.Item
	err := c.get(ctx, path, func(d *jx.Decoder) error {
		return wire.DecodeList(d, func(d *jx.Decoder) error {
			it, err := decode(d)
			if err != nil {
				return err
			}
			items = append(items, it)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// decodeProduct reads one inventory product. Unknown fields are skipped;
// a missing is_active defaults to active, matching the backend serializer.
func decodeProduct(d *jx.Decoder) (catalog.Item, error) {
	it := catalog.Item{Kind: catalog.KindProduct, Active: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = d.Int64()
		case "name":
			it.Name, err = d.Str()
		case "unit_price":
			it.UnitPrice, err = wire.DecodeDecimal(d)
		case "quantity":
			it.Stock, err = d.Int()
		case "is_active":
			it.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return catalog.Item{}, err
	}
	if it.ID == 0 {
		return catalog.Item{}, errors.New("product without id")
	}
	return it, nil
}

// decodeTestType reads one laboratory test type. Test types price under
// "cost" rather than "unit_price" and carry no stock.
func decodeTestType(d *jx.Decoder) (catalog.Item, error) {
	it := catalog.Item{Kind: catalog.KindLabTest, Active: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = d.Int64()
		case "name":
			it.Name, err = d.Str()
		case "cost":
			it.UnitPrice, err = wire.DecodeDecimal(d)
		case "is_active":
			it.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return catalog.Item{}, err
	}
	if it.ID == 0 {
		return catalog.Item{}, errors.New("test type without id")
	}
	return it, nil
}
