package main

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/app"
	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/catalog"
	"github.com/vladislavdragonenkov/retail/internal/service/customer"
)

func productAdd(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("product add")
	name := fs.String("name", "", "product name")
	sku := fs.String("sku", "", "unique SKU")
	price := fs.String("price", "", "unit price")
	stock := fs.Int("stock", 0, "units in stock")
	category := fs.String("category", "", "category")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	p, err := parsePrice(*price)
	if err != nil {
		return nil, err
	}
	return rt.Catalog.AddProduct(ctx, catalog.NewProduct{
		Name: *name, SKU: *sku, Price: p, Stock: *stock, Category: *category,
	})
}

func productList(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("product list")
	limit := fs.Int("limit", 0, "max products (default 100)")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	return rt.Catalog.ListProducts(ctx, *limit)
}

func productShow(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	id, err := parseWithID(newFlagSet("product show"), args, "product_id")
	if err != nil {
		return nil, err
	}
	return rt.Catalog.GetProduct(ctx, id)
}

func productUpdate(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("product update")
	name := fs.String("name", "", "new name")
	price := fs.String("price", "", "new unit price")
	stock := fs.Int("stock", 0, "new stock")
	category := fs.String("category", "", "new category")
	id, err := parseWithID(fs, args, "product_id")
	if err != nil {
		return nil, err
	}

	var update domain.ProductUpdate
	set := setFlags(fs)
	if set["name"] {
		update.Name = name
	}
	if set["price"] {
		p, err := parsePrice(*price)
		if err != nil {
			return nil, err
		}
		update.Price = &p
	}
	if set["stock"] {
		update.Stock = stock
	}
	if set["category"] {
		update.Category = category
	}
	return rt.Catalog.UpdateProduct(ctx, id, update)
}

func customerAdd(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("customer add")
	name := fs.String("name", "", "customer name")
	email := fs.String("email", "", "unique email")
	phone := fs.String("phone", "", "phone")
	city := fs.String("city", "", "city")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	return rt.Customers.CreateCustomer(ctx, customer.NewCustomer{
		Name: *name, Email: *email, Phone: *phone, City: *city,
	})
}

func customerShow(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("customer show")
	email := fs.String("email", "", "look up by email instead of id")
	positional, err := parse(fs, args)
	if err != nil {
		return nil, err
	}
	if setFlags(fs)["email"] {
		if len(positional) != 0 {
			return nil, fmt.Errorf("%w: customer show takes either <customer_id> or --email", domain.ErrInvalidArgument)
		}
		return rt.Customers.FindCustomerByEmail(ctx, *email)
	}
	if len(positional) != 1 {
		return nil, fmt.Errorf("%w: customer show expects exactly one <customer_id>", domain.ErrInvalidArgument)
	}
	id, err := parseID(positional[0], "customer_id")
	if err != nil {
		return nil, err
	}
	return rt.Customers.GetCustomer(ctx, id)
}

func customerUpdate(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("customer update")
	phone := fs.String("phone", "", "new phone")
	city := fs.String("city", "", "new city")
	id, err := parseWithID(fs, args, "customer_id")
	if err != nil {
		return nil, err
	}

	var update domain.CustomerUpdate
	set := setFlags(fs)
	if set["phone"] {
		update.Phone = phone
	}
	if set["city"] {
		update.City = city
	}
	return rt.Customers.UpdateCustomer(ctx, id, update)
}

func customerDelete(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	id, err := parseWithID(newFlagSet("customer delete"), args, "customer_id")
	if err != nil {
		return nil, err
	}
	return rt.Customers.DeleteCustomer(ctx, id)
}

func customerList(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("customer list")
	limit := fs.Int("limit", 0, "max customers (default 100)")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	return rt.Customers.ListCustomers(ctx, *limit)
}

func customerSearch(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("customer search")
	email := fs.String("email", "", "email substring")
	city := fs.String("city", "", "city substring")
	limit := fs.Int("limit", 0, "max customers (default 100)")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	return rt.Customers.SearchCustomers(ctx, domain.CustomerFilter{
		EmailContains: *email, CityContains: *city, Limit: *limit,
	})
}

func orderCreate(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("order create")
	customerID := fs.Int64("customer", 0, "customer id")
	var items itemList
	fs.Var(&items, "item", "order line <product_id>:<quantity>, repeatable")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	return rt.Orders.CreateOrder(ctx, *customerID, items)
}

func orderShow(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	id, err := parseWithID(newFlagSet("order show"), args, "order_id")
	if err != nil {
		return nil, err
	}
	return rt.Orders.GetOrderDetails(ctx, id)
}

func orderCancel(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("order cancel")
	reason := fs.String("reason", "", "cancellation reason")
	id, err := parseWithID(fs, args, "order_id")
	if err != nil {
		return nil, err
	}
	return rt.Orders.CancelOrder(ctx, id, *reason)
}

func orderComplete(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	id, err := parseWithID(newFlagSet("order complete"), args, "order_id")
	if err != nil {
		return nil, err
	}
	return rt.Orders.CompleteOrder(ctx, id)
}

func orderList(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("order list")
	customerID := fs.Int64("customer", 0, "customer id")
	limit := fs.Int("limit", 0, "max orders (0 = all)")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	if *customerID <= 0 {
		return nil, fmt.Errorf("%w: --customer is required", domain.ErrInvalidArgument)
	}
	return rt.Orders.ListCustomerOrders(ctx, *customerID, *limit)
}

func orderHistory(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	id, err := parseWithID(newFlagSet("order history"), args, "order_id")
	if err != nil {
		return nil, err
	}
	return rt.Orders.History(ctx, id)
}

func paymentProcess(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("payment process")
	method := fs.String("method", "", "payment method: Cash|Card|UPI")
	id, err := parseWithID(fs, args, "order_id")
	if err != nil {
		return nil, err
	}
	return rt.Payments.ProcessPayment(ctx, id, *method)
}

func paymentRefund(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	id, err := parseWithID(newFlagSet("payment refund"), args, "order_id")
	if err != nil {
		return nil, err
	}
	return rt.Payments.RefundPayment(ctx, id)
}

func paymentShow(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	id, err := parseWithID(newFlagSet("payment show"), args, "order_id")
	if err != nil {
		return nil, err
	}
	return rt.Payments.GetPayment(ctx, id)
}

func reportTopProducts(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("report top_products")
	limit := fs.Int("limit", 0, "number of products (default 5)")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	return rt.Reports.TopSellingProducts(ctx, *limit)
}

func reportRevenueLastMonth(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	if _, err := parse(newFlagSet("report revenue_last_month"), args); err != nil {
		return nil, err
	}
	return rt.Reports.RevenueLastMonth(ctx, time.Now())
}

func reportOrdersPerCustomer(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	if _, err := parse(newFlagSet("report orders_per_customer"), args); err != nil {
		return nil, err
	}
	return rt.Reports.OrdersPerCustomer(ctx)
}

func reportFrequentCustomers(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	fs := newFlagSet("report frequent_customers")
	minOrders := fs.Int("min_orders", 0, "minimum number of orders (default 2)")
	if _, err := parse(fs, args); err != nil {
		return nil, err
	}
	return rt.Reports.FrequentCustomers(ctx, *minOrders)
}

func outboxRelay(ctx context.Context, rt *app.Runtime, args []string) (any, error) {
	if _, err := parse(newFlagSet("outbox relay"), args); err != nil {
		return nil, err
	}
	return rt.RelayOutbox(ctx)
}
