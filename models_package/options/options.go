package options

import "time"

// Range describes data that has a lower and upper bound
type Range interface {
	// From returns the lower bound
	// The return value may be nil so From follows the "comma ok" idiom
	From() (interface{}, bool)
	// To returns the upper bound
	// The return value may be nil so To follows the "comma ok" idiom
	To() (interface{}, bool)
}

// TransactionOptions represent options that can be used to configure a
// FindTransactions call
type TransactionOptions struct {
	// keeps transactions sent or received by this user name
	Party string
	// filters transactions that have an amount in this range (inclusive)
	Amount *IntRange
	// filters transactions that were created in this range (inclusive)
	Timestamp *TimeRange
	// caps the number of rows returned, newest first; zero means no cap
	Limit int
}

func NewTransactionOptions() *TransactionOptions {
	return &TransactionOptions{}
}

func (o *TransactionOptions) SetParty(v string) *TransactionOptions {
	o.Party = v
	return o
}

func (o *TransactionOptions) SetAmountRange(v *IntRange) *TransactionOptions {
	o.Amount = v
	return o
}

func (o *TransactionOptions) SetTimeRange(v *TimeRange) *TransactionOptions {
	o.Timestamp = v
	return o
}

func (o *TransactionOptions) SetLimit(v int) *TransactionOptions {
	o.Limit = v
	return o
}

var (
	_ Range = (*IntRange)(nil)
	_ Range = (*TimeRange)(nil)
)

// IntRange bounds amounts. Either bound is optional
type IntRange struct {
	Low  *int64
	High *int64
}

func (r *IntRange) From() (interface{}, bool) {
	if r.Low != nil {
		return *r.Low, true
	}
	return nil, false
}

func (r *IntRange) To() (interface{}, bool) {
	if r.High != nil {
		return *r.High, true
	}
	return nil, false
}

// Contains reports whether v lies within the range.
func (r *IntRange) Contains(v int64) bool {
	if r == nil {
		return true
	}
	if r.Low != nil && v < *r.Low {
		return false
	}
	if r.High != nil && v > *r.High {
		return false
	}
	return true
}

// TimeRange describes a lower and upper bound for Time values
// Either bound is optional
type TimeRange struct {
	Low  *time.Time
	High *time.Time
}

func (r *TimeRange) From() (interface{}, bool) {
	if r.Low != nil {
		return *r.Low, true
	}
	return nil, false
}

func (r *TimeRange) To() (interface{}, bool) {
	if r.High != nil {
		return *r.High, true
	}
	return nil, false
}

// Contains reports whether t lies within the range.
func (r *TimeRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.Low != nil && t.Before(*r.Low) {
		return false
	}
	if r.High != nil && t.After(*r.High) {
		return false
	}
	return true
}
