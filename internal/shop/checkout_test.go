package shop_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sacoche_back_end/internal/models"
	"sacoche_back_end/internal/shop"
	"sacoche_back_end/internal/shop/shoptest"
)

func newCatalogEnv(t *testing.T) *shoptest.Env {
	t.Helper()
	env := shoptest.NewEnv(t0)
	ctx := context.Background()
	for _, p := range []models.Product{
		{ID: "product_1", Title: "Cabas en cuir", OriginalPrice: 150, DiscountedPrice: 120},
		{ID: "product_2", Title: "Pochette soirée", OriginalPrice: 80, DiscountedPrice: 60},
		{ID: "product_3", Title: "Mini cabas", OriginalPrice: 90, DiscountedPrice: 75},
	} {
		require.NoError(t, env.Products.SaveProduct(ctx, p))
	}
	return env
}

func checkoutEnv(t *testing.T, address string) *shoptest.Env {
	t.Helper()
	env := shoptest.NewEnv(t0)
	env.Users = shoptest.NewUsers(models.User{Email: alice.Email, Username: "alice", Address: address, Role: models.RoleUser})
	env.Checkout.Users = env.Users
	env.Carts.Put(alice.Email,
		models.CartItem{ProductID: "p1", Title: "Cabas", Price: 100, Quantity: 2},
		models.CartItem{ProductID: "p2", Title: "Pochette", Price: 45.5, Quantity: 1},
	)
	return env
}

func TestPlaceOrderCashOnDelivery(t *testing.T) {
	env := checkoutEnv(t, "12 rue des Lilas, Lyon")

	receipt, err := env.Checkout.PlaceOrder(context.Background(), alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}})
	require.NoError(t, err)

	o := receipt.Order
	assert.Equal(t, 200.0, o.Subtotal)
	assert.Equal(t, 200.0, o.Total)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	assert.Equal(t, models.DeliveryPending, o.DeliveryStatus)
	assert.Equal(t, models.PaymentMethodCOD, o.PaymentMethod)
	assert.Equal(t, "12 rue des Lilas, Lyon", o.User.Address)
	assert.Equal(t, shop.OrderID(alice.Email, t0), o.ID)
	assert.Equal(t, t0, o.CreatedAt)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Cabas", o.Items[0].Name)

	assert.True(t, receipt.EmailSent)
	assert.Equal(t, 1, env.Orders.Len())
	assert.Equal(t, []string{o.ID}, env.Events.Orders)

	// le panier n'est pas vidé
	cart, _ := env.Carts.GetCart(context.Background(), alice.Email)
	assert.Len(t, cart, 2)
}

func TestPlaceOrderWithoutAddressWritesNothing(t *testing.T) {
	env := checkoutEnv(t, "   ")

	_, err := env.Checkout.PlaceOrder(context.Background(), alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}})

	var verr *shop.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "address", verr.Field)
	assert.Zero(t, env.Orders.Len())
	assert.Empty(t, env.Notifier.Sent)
}

func TestPlaceOrderEmailFailureKeepsOrder(t *testing.T) {
	env := checkoutEnv(t, "12 rue des Lilas")
	env.Notifier.Err = errors.New("smtp: connection refused")

	receipt, err := env.Checkout.PlaceOrder(context.Background(), alice, shop.CheckoutRequest{SelectedIDs: []string{"p1", "p2"}})
	require.NoError(t, err)
	assert.False(t, receipt.EmailSent)
	assert.Equal(t, 245.5, receipt.Order.Total)
	assert.Equal(t, 1, env.Orders.Len())
}

func TestPlaceOrderRejectsBadSelection(t *testing.T) {
	env := checkoutEnv(t, "12 rue des Lilas")
	ctx := context.Background()

	_, err := env.Checkout.PlaceOrder(ctx, alice, shop.CheckoutRequest{})
	assert.True(t, shop.IsValidation(err))

	_, err = env.Checkout.PlaceOrder(ctx, alice, shop.CheckoutRequest{SelectedIDs: []string{"p1", "p9"}})
	assert.True(t, shop.IsValidation(err))

	_, err = env.Checkout.PlaceOrder(ctx, alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}, PaymentMethod: "cheque"})
	assert.True(t, shop.IsValidation(err))

	assert.Zero(t, env.Orders.Len())
}

func TestPlaceOrderByCard(t *testing.T) {
	env := checkoutEnv(t, "12 rue des Lilas")
	ctx := context.Background()

	_, err := env.Checkout.PlaceOrder(ctx, alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}, PaymentMethod: "card", CardID: "pm_1"})
	assert.True(t, shop.IsValidation(err), "carte inconnue")

	env.Accounts.Users = env.Users
	_, err = env.Accounts.SaveCard(ctx, alice, "pm_1")
	require.NoError(t, err)

	receipt, err := env.Checkout.PlaceOrder(ctx, alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}, PaymentMethod: "card", CardID: "pm_1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", receipt.Order.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", receipt.ClientSecret)
	require.Len(t, env.Payments.Charges, 1)
	assert.Equal(t, 200.0, env.Payments.Charges[0].Amount)
	assert.Equal(t, "cus_1", env.Payments.Charges[0].CustomerID)

	order, err := env.Checkout.ConfirmPayment(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, order.PaymentStatus)
}

func TestPlaceOrderChargeFailureWritesNothing(t *testing.T) {
	env := checkoutEnv(t, "12 rue des Lilas")
	env.Accounts.Users = env.Users
	_, err := env.Accounts.SaveCard(context.Background(), alice, "pm_1")
	require.NoError(t, err)
	env.Payments.ChargeErr = errors.New("card_declined")

	_, err = env.Checkout.PlaceOrder(context.Background(), alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}, PaymentMethod: "card", CardID: "pm_1"})
	require.Error(t, err)
	assert.Zero(t, env.Orders.Len())
}

func TestOrderVisibleToOwnerAndAdmin(t *testing.T) {
	env := checkoutEnv(t, "12 rue des Lilas")
	ctx := context.Background()
	receipt, err := env.Checkout.PlaceOrder(ctx, alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}})
	require.NoError(t, err)

	_, err = env.Checkout.Order(ctx, alice, receipt.Order.ID)
	assert.NoError(t, err)
	_, err = env.Checkout.Order(ctx, root, receipt.Order.ID)
	assert.NoError(t, err)
	_, err = env.Checkout.Order(ctx, shop.Session{Email: "bob@example.com", Role: models.RoleUser}, receipt.Order.ID)
	assert.ErrorIs(t, err, shop.ErrNotFound)

	mine, err := env.Checkout.MyOrders(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestPlaceOrderCancelsChargeWhenOrderWriteFails(t *testing.T) {
	env := checkoutEnv(t, "12 rue des Lilas")
	ctx := context.Background()
	env.Accounts.Users = env.Users
	_, err := env.Accounts.SaveCard(ctx, alice, "pm_1")
	require.NoError(t, err)
	env.Orders.CreateErr = errors.New("mongo: server selection timeout")

	receipt, err := env.Checkout.PlaceOrder(ctx, alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}, PaymentMethod: "card", CardID: "pm_1"})
	require.Error(t, err)
	assert.Nil(t, receipt)
	require.Len(t, env.Payments.Charges, 1)
	assert.Equal(t, []string{"pi_1"}, env.Payments.Cancelled)
	assert.Zero(t, env.Orders.Len())
	assert.Empty(t, env.Notifier.Sent)
	assert.Empty(t, env.Events.Orders)
}

func TestPlaceOrderCashWriteFailureCancelsNothing(t *testing.T) {
	env := checkoutEnv(t, "12 rue des Lilas")
	env.Orders.CreateErr = errors.New("mongo: server selection timeout")

	_, err := env.Checkout.PlaceOrder(context.Background(), alice, shop.CheckoutRequest{SelectedIDs: []string{"p1"}})
	require.Error(t, err)
	assert.Empty(t, env.Payments.Charges)
	assert.Empty(t, env.Payments.Cancelled)
}
