// Package aggregate folds classified transactions into per-month,
// per-category totals.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/example/expense-report/internal/period"
	"github.com/example/expense-report/pkg/transaction"
)

// Bucket holds everything admitted for one period.
type Bucket struct {
	Period period.Period
	// order keeps categories in declaration order.
	order      []string
	categories map[string]*transaction.List
	Excluded   transaction.List
}

// NewBucket creates a bucket with an empty list for every category.
func NewBucket(p period.Period, categories []string) *Bucket {
	b := &Bucket{
		Period:     p,
		categories: make(map[string]*transaction.List, len(categories)),
	}
	for _, c := range categories {
		b.ensure(c)
	}
	return b
}

func (b *Bucket) ensure(category string) *transaction.List {
	if l, ok := b.categories[category]; ok {
		return l
	}
	l := &transaction.List{}
	b.categories[category] = l
	b.order = append(b.order, category)
	return l
}

// Categories returns the category names in declaration order.
func (b *Bucket) Categories() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Category returns the list for a category, or an empty list if unknown.
func (b *Bucket) Category(name string) *transaction.List {
	if l, ok := b.categories[name]; ok {
		return l
	}
	return &transaction.List{}
}

// GrandTotal sums every category total. Exclusions never count.
func (b *Bucket) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, name := range b.order {
		total = total.Add(b.categories[name].Total)
	}
	return total
}

// Admit records one classified transaction. Skipped classifications are ignored.
func (b *Bucket) Admit(c transaction.Classification, txn transaction.Transaction) {
	e := transaction.Entry{Transaction: txn, Classification: c}
	switch c.Kind {
	case transaction.Excluded:
		b.Excluded.Add(e)
	case transaction.Categorized:
		b.ensure(c.Category).Add(e)
	case transaction.Skipped:
	}
}

// MergeBuckets combines two buckets of the same period into a new one.
// Entries of a precede entries of b; totals are summed. Categories only b
// knows are appended after a's.
func MergeBuckets(a, b *Bucket) *Bucket {
	out := &Bucket{
		Period:     a.Period,
		categories: make(map[string]*transaction.List, len(a.order)),
	}
	for _, name := range a.order {
		out.categories[name] = a.categories[name].Concat(b.categories[name])
		out.order = append(out.order, name)
	}
	for _, name := range b.order {
		if _, ok := out.categories[name]; ok {
			continue
		}
		out.categories[name] = (&transaction.List{}).Concat(b.categories[name])
		out.order = append(out.order, name)
	}
	out.Excluded = *a.Excluded.Concat(&b.Excluded)
	return out
}

// Stats counts what happened to the rows of a run.
type Stats struct {
	Categorized int
	Excluded    int
	Skipped     int
}

// Add returns the field-wise sum of two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Categorized: s.Categorized + o.Categorized,
		Excluded:    s.Excluded + o.Excluded,
		Skipped:     s.Skipped + o.Skipped,
	}
}

// Report maps period keys to buckets.
type Report struct {
	categories []string
	buckets    map[string]*Bucket
	Stats      Stats
}

// NewReport creates an empty report whose buckets list the given categories.
func NewReport(categories []string) *Report {
	return &Report{
		categories: append([]string(nil), categories...),
		buckets:    make(map[string]*Bucket),
	}
}

// Admit records a classified transaction under the given period.
func (r *Report) Admit(p period.Period, c transaction.Classification, txn transaction.Transaction) {
	switch c.Kind {
	case transaction.Skipped:
		r.Stats.Skipped++
		return
	case transaction.Excluded:
		r.Stats.Excluded++
	case transaction.Categorized:
		r.Stats.Categorized++
	}

	b, ok := r.buckets[p.Key]
	if !ok {
		b = NewBucket(p, r.categories)
		r.buckets[p.Key] = b
	}
	b.Admit(c, txn)
}

// Merge folds other into r. For shared periods r's entries come first.
func (r *Report) Merge(other *Report) {
	for key, ob := range other.buckets {
		if b, ok := r.buckets[key]; ok {
			r.buckets[key] = MergeBuckets(b, ob)
			continue
		}
		r.buckets[key] = MergeBuckets(NewBucket(ob.Period, r.categories), ob)
	}
	r.Stats = r.Stats.Add(other.Stats)
}

// Bucket returns the bucket for a period key.
func (r *Report) Bucket(key string) (*Bucket, bool) {
	b, ok := r.buckets[key]
	return b, ok
}

// Periods returns the buckets sorted by period key.
func (r *Report) Periods() []*Bucket {
	keys := make([]string, 0, len(r.buckets))
	for k := range r.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Bucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.buckets[k])
	}
	return out
}

// Empty reports whether nothing was admitted.
func (r *Report) Empty() bool {
	return len(r.buckets) == 0
}
