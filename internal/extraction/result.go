// Package extraction turns raw provider text into structured data or clean
// prose. Every function here is pure.
package extraction

// Kind tags an extraction Result.
type Kind int

const (
	KindFailed Kind = iota
	KindStructured
	KindPlainText
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindPlainText:
		return "plain_text"
	default:
		return "failed"
	}
}

// Result is the outcome of one extraction. Exactly one of Data, Text or
// Reason is meaningful, selected by Kind.
type Result struct {
	Kind     Kind
	Data     map[string]any
	Text     string
	Reason   string
	Strategy string
	err      error
}

// Structured builds a successful structured result.
func Structured(data map[string]any, strategy string) Result {
	return Result{Kind: KindStructured, Data: data, Strategy: strategy}
}

// PlainText builds a successful prose result.
func PlainText(text string) Result {
	return Result{Kind: KindPlainText, Text: text}
}

// Failed builds a failed result carrying the cause.
func Failed(err error) Result {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return Result{Kind: KindFailed, Reason: reason, err: err}
}

// OK reports whether extraction succeeded.
func (r Result) OK() bool {
	return r.Kind != KindFailed
}

// Err returns the failure cause, or nil for successful results.
func (r Result) Err() error {
	if r.Kind != KindFailed {
		return nil
	}
	return r.err
}
