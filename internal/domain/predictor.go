package domain

import (
	"context"
	"time"
)

// FeatureVector is the prediction input. Field names follow the dataset
// column naming so clients can submit rows straight from the CSV export.
type FeatureVector struct {
	Age                    float64 `json:"Age"`
	Occupation             string  `json:"Occupation"`
	AnnualIncome           float64 `json:"Annual_Income"`
	MonthlyInhandSalary    float64 `json:"Monthly_Inhand_Salary"`
	NumBankAccounts        int     `json:"Num_Bank_Accounts"`
	NumCreditCard          int     `json:"Num_Credit_Card"`
	InterestRate           float64 `json:"Interest_Rate"`
	NumOfLoan              int     `json:"Num_of_Loan"`
	DelayFromDueDate       int     `json:"Delay_from_due_date"`
	NumOfDelayedPayment    int     `json:"Num_of_Delayed_Payment"`
	CreditUtilizationRatio float64 `json:"Credit_Utilization_Ratio"`
	CreditHistoryAge       int     `json:"Credit_History_Age"`
	OutstandingDebt        float64 `json:"Outstanding_Debt"`
	TotalEMIPerMonth       float64 `json:"Total_EMI_per_month"`
	AmountInvestedMonthly  float64 `json:"Amount_invested_monthly"`
	MonthlyBalance         float64 `json:"Monthly_Balance"`
	CreditMix              string  `json:"Credit_Mix"`
	PaymentOfMinAmount     string  `json:"Payment_of_Min_Amount"`
	PaymentBehaviour       string  `json:"Payment_Behaviour"`
}

// ModelOutput is the raw result of a model invocation.
type ModelOutput struct {
	Label         string             `json:"label"`
	Score         float64            `json:"score"`
	Probabilities map[string]float64 `json:"probabilities"`

	// Warnings surfaces non-fatal preprocessing issues, such as an
	// unseen categorical value coerced to the neutral code.
	Warnings []string `json:"warnings,omitempty"`
}

// Predictor is the classification model service. Implementations must be
// safe for concurrent use; the server constructs one instance at startup and
// shares it across handlers.
type Predictor interface {
	Predict(ctx context.Context, features *FeatureVector) (*ModelOutput, error)
	Info() *ModelInfo
}

// ModelInfo describes the loaded model artifact.
type ModelInfo struct {
	Version       string             `json:"version"`
	TargetClasses []string           `json:"targetClasses"`
	Features      []string           `json:"features"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
	LoadedFrom    string             `json:"loadedFrom,omitempty"`
}

// Prediction is the complete stored result of one classification request.
type Prediction struct {
	ID            string             `json:"id"`
	Label         string             `json:"label"`
	Score         float64            `json:"score"`
	Probabilities map[string]float64 `json:"probabilities"`
	Features      *FeatureVector     `json:"features,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
	RuleResults   []RuleResult       `json:"ruleResults,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`

	Metadata PredictionMetadata `json:"metadata"`
}

// PredictionMetadata carries processing information.
type PredictionMetadata struct {
	TraceID      string `json:"traceId"`
	RulesMs      int64  `json:"rulesMs"`
	PredictMs    int64  `json:"predictMs"`
	TotalMs      int64  `json:"totalMs"`
	RulesChecked int    `json:"rulesChecked"`
	ModelVersion string `json:"modelVersion"`
	Cached       bool   `json:"cached,omitempty"`
}
