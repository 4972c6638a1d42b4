// Package domain defines the core types and interfaces for Kestrel.
package domain

import "strconv"

// Record is one synthetic row of financial/demographic attributes with a
// derived credit score label. Records are immutable after generation.
type Record struct {
	ID                     string  `json:"id"`
	CustomerID             string  `json:"customerId"`
	Month                  string  `json:"month"`
	Name                   string  `json:"name"`
	Age                    int     `json:"age"`
	SSN                    string  `json:"ssn"`
	Occupation             string  `json:"occupation"`
	AnnualIncome           float64 `json:"annualIncome"`
	MonthlyInhandSalary    float64 `json:"monthlyInhandSalary"`
	NumBankAccounts        int     `json:"numBankAccounts"`
	NumCreditCard          int     `json:"numCreditCard"`
	InterestRate           float64 `json:"interestRate"`
	NumOfLoan              int     `json:"numOfLoan"`
	TypeOfLoan             string  `json:"typeOfLoan"`
	DelayFromDueDate       int     `json:"delayFromDueDate"`
	NumOfDelayedPayment    int     `json:"numOfDelayedPayment"`
	ChangedCreditLimit     float64 `json:"changedCreditLimit"`
	NumCreditInquiries     int     `json:"numCreditInquiries"`
	CreditMix              string  `json:"creditMix"`
	OutstandingDebt        float64 `json:"outstandingDebt"`
	CreditUtilizationRatio float64 `json:"creditUtilizationRatio"`
	CreditHistoryAge       int     `json:"creditHistoryAge"`
	PaymentOfMinAmount     string  `json:"paymentOfMinAmount"`
	TotalEMIPerMonth       float64 `json:"totalEmiPerMonth"`
	AmountInvestedMonthly  float64 `json:"amountInvestedMonthly"`
	PaymentBehaviour       string  `json:"paymentBehaviour"`
	MonthlyBalance         float64 `json:"monthlyBalance"`
	CreditScore            string  `json:"creditScore"`
}

// Columns is the fixed CSV column order for exported datasets.
// The dataset writer and all consumers rely on this ordering.
var Columns = []string{
	"ID",
	"Customer_ID",
	"Month",
	"Name",
	"Age",
	"SSN",
	"Occupation",
	"Annual_Income",
	"Monthly_Inhand_Salary",
	"Num_Bank_Accounts",
	"Num_Credit_Card",
	"Interest_Rate",
	"Num_of_Loan",
	"Type_of_Loan",
	"Delay_from_due_date",
	"Num_of_Delayed_Payment",
	"Changed_Credit_Limit",
	"Num_Credit_Inquiries",
	"Credit_Mix",
	"Outstanding_Debt",
	"Credit_Utilization_Ratio",
	"Credit_History_Age",
	"Payment_of_Min_Amount",
	"Total_EMI_per_month",
	"Amount_invested_monthly",
	"Payment_Behaviour",
	"Monthly_Balance",
	"Credit_Score",
}

// Credit score classes, the target attribute of the dataset.
const (
	ClassPoor     = "Poor"
	ClassStandard = "Standard"
	ClassGood     = "Good"
)

// Classes lists the score classes in the model's canonical order.
var Classes = []string{ClassPoor, ClassStandard, ClassGood}

// Fixed category sets for the categorical attributes.
var (
	Occupations = []string{
		"Engineer", "Teacher", "Doctor", "Lawyer", "Manager", "Sales",
		"Student", "Artist", "Entrepreneur", "Accountant", "Nurse", "Other",
	}

	CreditMixes = []string{"Good", "Standard", "Bad"}

	PaymentBehaviours = []string{
		"High_spent_Small_value_payments",
		"Low_spent_Large_value_payments",
		"High_spent_Medium_value_payments",
		"Low_spent_Medium_value_payments",
		"High_spent_Large_value_payments",
		"Low_spent_Small_value_payments",
	}

	LoanTypes = []string{
		"Auto Loan", "Credit-Builder Loan", "Personal Loan",
		"Home Equity Loan", "Mortgage Loan", "Student Loan",
		"Debt Consolidation Loan", "Payday Loan",
	}

	Months = []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
)

// CSVRow renders the record as CSV cells in Columns order.
// Floats use the shortest representation that round-trips, matching the
// precision the generator recorded them with.
func (r *Record) CSVRow() []string {
	return []string{
		r.ID,
		r.CustomerID,
		r.Month,
		r.Name,
		strconv.Itoa(r.Age),
		r.SSN,
		r.Occupation,
		formatFloat(r.AnnualIncome),
		formatFloat(r.MonthlyInhandSalary),
		strconv.Itoa(r.NumBankAccounts),
		strconv.Itoa(r.NumCreditCard),
		formatFloat(r.InterestRate),
		strconv.Itoa(r.NumOfLoan),
		r.TypeOfLoan,
		strconv.Itoa(r.DelayFromDueDate),
		strconv.Itoa(r.NumOfDelayedPayment),
		formatFloat(r.ChangedCreditLimit),
		strconv.Itoa(r.NumCreditInquiries),
		r.CreditMix,
		formatFloat(r.OutstandingDebt),
		formatFloat(r.CreditUtilizationRatio),
		strconv.Itoa(r.CreditHistoryAge),
		r.PaymentOfMinAmount,
		formatFloat(r.TotalEMIPerMonth),
		formatFloat(r.AmountInvestedMonthly),
		r.PaymentBehaviour,
		formatFloat(r.MonthlyBalance),
		r.CreditScore,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
