// Package synth generates synthetic credit score records.
//
// Every draw goes through a single seeded *rand.Rand advanced in strict
// field order, so a fixed seed reproduces the dataset byte for byte.
package synth

import (
	"math"
	"math/rand"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Config holds the tunable knobs of the generator.
type Config struct {
	// Seed initializes the pseudo-random source.
	Seed int64 `json:"seed"`

	// LabelNoiseRate is the probability that the derived credit score
	// label is discarded and replaced by a uniformly random class.
	// Intentional label noise for realism.
	LabelNoiseRate float64 `json:"labelNoiseRate"`
}

// DefaultConfig returns the standard generator configuration.
func DefaultConfig() Config {
	return Config{
		Seed:           42,
		LabelNoiseRate: 0.1,
	}
}

// Scoring formula constants. Five normalized sub-scores are combined into a
// 0-100 score, perturbed by Gaussian noise and bucketed into three classes.
const (
	weightHistory      = 0.3
	weightTimeliness   = 0.25
	weightDebtRatio    = 0.2
	weightBalanceRatio = 0.15
	weightDelinquency  = 0.1

	scoreNoiseStdDev = 10.0

	thresholdGood     = 70.0
	thresholdStandard = 40.0
)

var (
	bankAccountValues  = []int{1, 2, 3, 4, 5}
	bankAccountWeights = []float64{0.3, 0.3, 0.2, 0.15, 0.05}

	creditCardValues  = []int{0, 1, 2, 3, 4, 5}
	creditCardWeights = []float64{0.1, 0.25, 0.3, 0.2, 0.1, 0.05}

	loanCountValues  = []int{0, 1, 2, 3, 4}
	loanCountWeights = []float64{0.4, 0.3, 0.2, 0.08, 0.02}

	creditMixWeights  = []float64{0.3, 0.5, 0.2} // Good, Standard, Bad
	minPaymentWeights = []float64{0.7, 0.3}      // Yes, No
)

// Generator produces synthetic records. Not safe for concurrent use; the
// single RNG is shared mutable state and must advance in index order.
type Generator struct {
	cfg          Config
	rng          *rand.Rand
	delayWeights []float64
}

// New creates a generator with its own seeded random source.
func New(cfg Config) *Generator {
	return &Generator{
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		delayWeights: delayDistribution(),
	}
}

// delayDistribution builds the 60-point exponentially decaying weight vector
// for the delay-from-due-date draw, normalized to sum to 1.
func delayDistribution() []float64 {
	weights := make([]float64, 60)
	var sum float64
	for i := range weights {
		weights[i] = math.Exp(-float64(i) * 0.1)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// Generate produces the record for index i. Draw order is fixed; changing it
// changes the output stream for a given seed.
func (g *Generator) Generate(i int) *domain.Record {
	// Demographics
	age := g.intRange(18, 80)
	annualIncome := g.logNormal(10, 1)

	// Account information
	numBankAccounts := g.weightedInt(bankAccountValues, bankAccountWeights)
	numCreditCards := g.weightedInt(creditCardValues, creditCardWeights)

	// Credit history (months)
	creditHistoryAge := g.intRange(6, 300)

	// Financial behavior
	monthlySalary := annualIncome / 12 * g.uniform(0.8, 1.2)
	interestRate := g.uniform(5, 25)
	numOfLoans := g.weightedInt(loanCountValues, loanCountWeights)

	// Payment behavior
	delayFromDueDate := g.weightedIndex(g.delayWeights)
	numDelayedPayments := g.poisson(2)

	outstandingDebt := annualIncome * g.uniform(0, 2)
	monthlyBalance := monthlySalary * g.uniform(-0.5, 0.5)

	// Categorical features
	occupation := domain.Occupations[g.rng.Intn(len(domain.Occupations))]
	creditMix := domain.CreditMixes[g.weightedIndex(creditMixWeights)]
	paymentOfMinAmount := []string{"Yes", "No"}[g.weightedIndex(minPaymentWeights)]
	paymentBehaviour := domain.PaymentBehaviours[g.rng.Intn(len(domain.PaymentBehaviours))]

	score := g.creditScore(scoreInput{
		creditHistoryAge:   creditHistoryAge,
		delayFromDueDate:   delayFromDueDate,
		outstandingDebt:    outstandingDebt,
		annualIncome:       annualIncome,
		monthlyBalance:     monthlyBalance,
		monthlySalary:      monthlySalary,
		numDelayedPayments: numDelayedPayments,
	})
	label := Classify(score)

	// Label noise: with fixed probability the computed class is discarded
	// and replaced uniformly at random.
	if g.rng.Float64() < g.cfg.LabelNoiseRate {
		label = domain.Classes[g.rng.Intn(len(domain.Classes))]
	}

	return &domain.Record{
		ID:                     customerHexID(i),
		CustomerID:             customerID(i),
		Month:                  domain.Months[g.rng.Intn(len(domain.Months))],
		Name:                   g.fullName(),
		Age:                    age,
		SSN:                    g.ssn(),
		Occupation:             occupation,
		AnnualIncome:           round2(annualIncome),
		MonthlyInhandSalary:    round2(monthlySalary),
		NumBankAccounts:        numBankAccounts,
		NumCreditCard:          numCreditCards,
		InterestRate:           round2(interestRate),
		NumOfLoan:              numOfLoans,
		TypeOfLoan:             domain.LoanTypes[g.rng.Intn(len(domain.LoanTypes))],
		DelayFromDueDate:       delayFromDueDate,
		NumOfDelayedPayment:    numDelayedPayments,
		ChangedCreditLimit:     g.uniform(-50, 100),
		NumCreditInquiries:     g.intRange(0, 10),
		CreditMix:              creditMix,
		OutstandingDebt:        round2(outstandingDebt),
		CreditUtilizationRatio: round2(g.uniform(0, 100)),
		CreditHistoryAge:       creditHistoryAge,
		PaymentOfMinAmount:     paymentOfMinAmount,
		TotalEMIPerMonth:       round2(monthlySalary * g.uniform(0, 0.6)),
		AmountInvestedMonthly:  round2(monthlySalary * g.uniform(0, 0.3)),
		PaymentBehaviour:       paymentBehaviour,
		MonthlyBalance:         round2(monthlyBalance),
		CreditScore:            label,
	}
}

type scoreInput struct {
	creditHistoryAge   int
	delayFromDueDate   int
	outstandingDebt    float64
	annualIncome       float64
	monthlyBalance     float64
	monthlySalary      float64
	numDelayedPayments int
}

// creditScore computes the weighted linear combination of the five
// sub-scores, scaled to 0-100 and perturbed with Gaussian noise.
// Ratio terms short-circuit to 0 on a zero denominator.
func (g *Generator) creditScore(in scoreInput) float64 {
	score := Score(
		in.creditHistoryAge,
		in.delayFromDueDate,
		in.outstandingDebt,
		in.annualIncome,
		in.monthlyBalance,
		in.monthlySalary,
		in.numDelayedPayments,
	)
	return score + g.rng.NormFloat64()*scoreNoiseStdDev
}

// Score is the noise-free scoring formula shared with the scorecard model.
func Score(historyAge, delay int, debt, income, balance, salary float64, delayedPayments int) float64 {
	factors := float64(historyAge)/300*weightHistory +
		(1-float64(delay)/60)*weightTimeliness

	if income > 0 {
		factors += (1 - debt/income) * weightDebtRatio
	}
	if salary > 0 {
		factors += balance / salary * weightBalanceRatio
	}

	factors += (1 - float64(delayedPayments)/10) * weightDelinquency

	return factors * 100
}

// Classify maps a numeric score to a credit score class.
func Classify(score float64) string {
	switch {
	case score >= thresholdGood:
		return domain.ClassGood
	case score >= thresholdStandard:
		return domain.ClassStandard
	default:
		return domain.ClassPoor
	}
}

// intRange draws uniformly from [lo, hi).
func (g *Generator) intRange(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo)
}

// uniform draws uniformly from [lo, hi).
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// logNormal draws from a log-normal distribution with the given location
// and scale parameters.
func (g *Generator) logNormal(mu, sigma float64) float64 {
	return math.Exp(mu + sigma*g.rng.NormFloat64())
}

// poisson draws from a Poisson distribution using Knuth's algorithm.
// Fine for small means; lambda here is 2.
func (g *Generator) poisson(lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= g.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// weightedIndex draws an index according to the given probability weights.
// Weights must sum to 1; the final index absorbs rounding slack.
func (g *Generator) weightedIndex(weights []float64) int {
	r := g.rng.Float64()
	var cum float64
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}

// weightedInt draws a value from values according to weights.
func (g *Generator) weightedInt(values []int, weights []float64) int {
	return values[g.weightedIndex(weights)]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
