package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSaleStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from SaleStatus
		to   SaleStatus
		want bool
	}{
		{"pending to paid", SaleStatusPending, SaleStatusPaid, true},
		{"paid to shipped", SaleStatusPaid, SaleStatusShipped, true},
		{"shipped to delivered", SaleStatusShipped, SaleStatusDelivered, true},
		{"delivered to completed", SaleStatusDelivered, SaleStatusCompleted, true},
		{"completed to refunded", SaleStatusCompleted, SaleStatusRefunded, true},
		{"pending to cancelled", SaleStatusPending, SaleStatusCancelled, true},
		{"shipped to cancelled", SaleStatusShipped, SaleStatusCancelled, true},
		{"pending to shipped skips paid", SaleStatusPending, SaleStatusShipped, false},
		{"paid to completed skips steps", SaleStatusPaid, SaleStatusCompleted, false},
		{"completed to cancelled", SaleStatusCompleted, SaleStatusCancelled, false},
		{"pending to refunded", SaleStatusPending, SaleStatusRefunded, false},
		{"cancelled is terminal", SaleStatusCancelled, SaleStatusPending, false},
		{"refunded is terminal", SaleStatusRefunded, SaleStatusCompleted, false},
		{"paid back to pending", SaleStatusPaid, SaleStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestSaleStatus_IsTerminal(t *testing.T) {
	terminal := []SaleStatus{SaleStatusCancelled, SaleStatusRefunded}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	nonTerminal := []SaleStatus{
		SaleStatusPending, SaleStatusPaid, SaleStatusShipped,
		SaleStatusDelivered, SaleStatusCompleted,
	}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestSaleFees_Total(t *testing.T) {
	fees := SaleFees{
		PlatformFee:       decimal.NewFromFloat(2.25),
		PaymentFee:        decimal.NewFromFloat(0.50),
		ShippingFee:       decimal.NewFromFloat(1.00),
		PromotionDiscount: decimal.NewFromFloat(0.75),
		Other:             decimal.NewFromFloat(0.25),
	}
	// 2.25 + 0.50 + 1.00 + 0.25 - 0.75 = 3.25
	want := decimal.NewFromFloat(3.25)
	if got := fees.Total(); !got.Equal(want) {
		t.Errorf("Total() = %s, want %s", got, want)
	}
}

func TestSale_DerivedAmounts(t *testing.T) {
	// 售价45，平台费2.25，运费1，进货成本25：
	// 净额 = 45 - 3.25 = 41.75；利润 = 41.75 - 25 = 16.75
	// 利润率 = 16.75 / 41.75 * 100 ≈ 40.12%
	sale := &Sale{
		Quantity:  1,
		SalePrice: decimal.NewFromInt(45),
		Fees: SaleFees{
			PlatformFee: decimal.NewFromFloat(2.25),
			ShippingFee: decimal.NewFromInt(1),
		},
	}
	purchasePrice := decimal.NewFromInt(25)

	net := sale.NetAmount()
	if want := decimal.NewFromFloat(41.75); !net.Equal(want) {
		t.Errorf("NetAmount() = %s, want %s", net, want)
	}

	profit := sale.Profit(purchasePrice)
	if want := decimal.NewFromFloat(16.75); !profit.Equal(want) {
		t.Errorf("Profit() = %s, want %s", profit, want)
	}

	margin := sale.ProfitMargin(purchasePrice)
	if margin.LessThan(decimal.NewFromFloat(40.11)) || margin.GreaterThan(decimal.NewFromFloat(40.13)) {
		t.Errorf("ProfitMargin() = %s, want ≈40.12", margin)
	}
}

func TestSale_ProfitMargin_NonPositiveNet(t *testing.T) {
	// 费用吞掉全部售价时净额为0，利润率必须返回0而不是除零
	sale := &Sale{
		Quantity:  1,
		SalePrice: decimal.NewFromInt(10),
		Fees:      SaleFees{PlatformFee: decimal.NewFromInt(10)},
	}
	if got := sale.ProfitMargin(decimal.NewFromInt(5)); !got.IsZero() {
		t.Errorf("ProfitMargin() with zero net = %s, want 0", got)
	}

	sale.Fees.PlatformFee = decimal.NewFromInt(12)
	if got := sale.ProfitMargin(decimal.NewFromInt(5)); !got.IsZero() {
		t.Errorf("ProfitMargin() with negative net = %s, want 0", got)
	}
}

func TestSale_Profit_MultiQuantity(t *testing.T) {
	// sale_price 是整单金额：数量3、整单60、单件成本10 → 利润 60 - 30 = 30
	sale := &Sale{
		Quantity:  3,
		SalePrice: decimal.NewFromInt(60),
	}
	if got, want := sale.Profit(decimal.NewFromInt(10)), decimal.NewFromInt(30); !got.Equal(want) {
		t.Errorf("Profit() = %s, want %s", got, want)
	}
}
