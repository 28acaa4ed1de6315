package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

// testChain 构造 n 个合约的测试链，行权价围绕标的价铺开，看涨/看跌交替
func testChain(n int) ([]ContractSpec, ChainContext) {
	contracts := make([]ContractSpec, n)
	for i := 0; i < n; i++ {
		optionType := OptionTypeCall
		if i%2 == 1 {
			optionType = OptionTypePut
		}
		contracts[i] = ContractSpec{
			Symbol:       fmt.Sprintf("TST-%d", i),
			Type:         optionType,
			StrikePrice:  decimal.NewFromFloat(80 + float64(i%41)),
			Volatility:   0.2 + 0.002*float64(i%10),
			TimeToExpiry: 0.25,
			ExpiryDate:   1700000000000,
		}
	}
	chain := ChainContext{
		UnderlyingPrice: decimal.NewFromInt(100),
		RiskFreeRate:    0.05,
		DividendYield:   0.01,
		PricingModel:    ModelBlackScholesMerton,
	}
	return contracts, chain
}

func mustStrategy(t *testing.T, name string) PricingStrategy {
	t.Helper()
	s, err := LookupStrategy(name)
	if err != nil {
		t.Fatalf("lookup %s: %v", name, err)
	}
	return s
}

func TestBatchEvaluate_OrderPreserved(t *testing.T) {
	contracts, chain := testChain(50)
	core := NewBatchPricingCore(7, 4, NewBoundsValidator(true, 0))

	results, chunks, _, err := core.Evaluate(context.Background(), contracts, chain, mustStrategy(t, chain.PricingModel))
	if err != nil {
		t.Fatalf("batch evaluate: %v", err)
	}
	if want := (50 + 6) / 7; chunks != want {
		t.Fatalf("chunk count mismatch: got=%d want=%d", chunks, want)
	}
	if len(results) != len(contracts) {
		t.Fatalf("result length mismatch: got=%d want=%d", len(results), len(contracts))
	}
	for i, r := range results {
		if r.Symbol != contracts[i].Symbol {
			t.Fatalf("order broken at %d: got=%s want=%s", i, r.Symbol, contracts[i].Symbol)
		}
		if r.Path != PathBatch {
			t.Fatalf("path mismatch at %d: %s", i, r.Path)
		}
	}
}

func TestBatchEvaluate_MatchesScalar(t *testing.T) {
	// 等价性：批量与标量必须使用同一套公式，逐值偏差小于 1e-6
	for _, n := range []int{1, 3, 7, 50, 501} {
		contracts, chain := testChain(n)
		validator := NewBoundsValidator(true, 0)
		core := NewBatchPricingCore(100, 4, validator)
		scalar := NewScalarFallbackPath(validator)
		strategy := mustStrategy(t, chain.PricingModel)

		batchResults, _, _, err := core.Evaluate(context.Background(), contracts, chain, strategy)
		if err != nil {
			t.Fatalf("n=%d batch evaluate: %v", n, err)
		}
		scalarResults, _, err := scalar.Evaluate(context.Background(), contracts, chain, strategy)
		if err != nil {
			t.Fatalf("n=%d scalar evaluate: %v", n, err)
		}

		for i := range contracts {
			for _, g := range AllGreeks() {
				bv, sv := batchResults[i].Values[g], scalarResults[i].Values[g]
				if bv.Available != sv.Available {
					t.Fatalf("n=%d availability mismatch: contract=%d greek=%s", n, i, g)
				}
				if !bv.Available {
					continue
				}
				diff := bv.Value.Sub(sv.Value).Abs()
				if diff.GreaterThan(decimal.NewFromFloat(1e-6)) {
					t.Fatalf("n=%d value mismatch: contract=%d greek=%s batch=%s scalar=%s",
						n, i, g, bv.Value, sv.Value)
				}
			}
		}
	}
}

func TestBatchEvaluate_FailsWholeInvocation(t *testing.T) {
	// 任一块校验失败，整次调用失败且不产生部分结果
	contracts, chain := testChain(30)
	contracts[17].Volatility = -0.1
	core := NewBatchPricingCore(10, 2, NewBoundsValidator(true, 0))

	results, _, _, err := core.Evaluate(context.Background(), contracts, chain, mustStrategy(t, chain.PricingModel))
	var invalid *InvalidContractDataError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidContractDataError, got %v", err)
	}
	if invalid.Index != 17 || invalid.Field != "volatility" {
		t.Fatalf("error detail mismatch: %+v", invalid)
	}
	if results != nil {
		t.Fatalf("no partial results allowed on failure")
	}
}

func TestBatchEvaluate_RecoversPanic(t *testing.T) {
	contracts, chain := testChain(20)
	chain.PricingModel = "panicking_model"
	RegisterStrategy(panickingStrategy{})
	core := NewBatchPricingCore(10, 2, NewBoundsValidator(true, 0))

	_, _, _, err := core.Evaluate(context.Background(), contracts, chain, mustStrategy(t, chain.PricingModel))
	var batchErr *BatchComputationError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchComputationError, got %v", err)
	}
}

func TestBatchEvaluate_ContextCancelled(t *testing.T) {
	contracts, chain := testChain(50)
	core := NewBatchPricingCore(5, 2, NewBoundsValidator(true, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err := core.Evaluate(ctx, contracts, chain, mustStrategy(t, chain.PricingModel))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScalarEvaluate_IsolatesBadContract(t *testing.T) {
	contracts, chain := testChain(5)
	contracts[2].Volatility = -0.1
	scalar := NewScalarFallbackPath(NewBoundsValidator(true, 0))

	results, _, err := scalar.Evaluate(context.Background(), contracts, chain, mustStrategy(t, chain.PricingModel))
	if err != nil {
		t.Fatalf("scalar evaluate: %v", err)
	}
	for i, r := range results {
		available := r.Values[GreekDelta].Available
		if i == 2 {
			if available {
				t.Fatalf("bad contract must be unavailable")
			}
			if r.Values[GreekDelta].Reason != ReasonInvalidContract {
				t.Fatalf("reason mismatch: %q", r.Values[GreekDelta].Reason)
			}
			continue
		}
		if !available {
			t.Fatalf("contract %d should be available", i)
		}
	}
}

// panickingStrategy 测试用：数组管线内 panic
type panickingStrategy struct{}

func (panickingStrategy) Name() string { return "panicking_model" }

func (panickingStrategy) Evaluate(in ModelInputs, requested []GreekKind) (*ModelOutputs, error) {
	panic("vectorized kernel exploded")
}
