package matching

import (
	"log/slog"
	"strconv"
	"strings"

	"pricesync/internal/artstyle"
)

// Selection rule names recorded on results and traces.
const (
	RuleOverride         = "override"
	RuleOverrideOrphaned = "override-orphaned"
	RuleNoNumberMatch    = "no-number-match"
	RuleNonStandard      = "non-standard"
	RuleFirst            = "first"
	rulePrefixStyle      = "style:"
)

func styleRule(tag artstyle.Tag) string {
	return rulePrefixStyle + string(tag)
}

// Considered is one number-matched candidate with its classified tag.
type Considered struct {
	ProductID int64
	Name      string
	Tag       artstyle.Tag
}

// Trace explains how a result was reached.
type Trace struct {
	CardID     string
	Expected   artstyle.Tag
	Reprint    bool
	Override   bool
	Candidates []Considered
	Rule       string
	Winner     int64
}

// LogValue renders the trace as a group for debug logging.
func (t Trace) LogValue() slog.Value {
	considered := make([]string, 0, len(t.Candidates))
	for _, c := range t.Candidates {
		considered = append(considered, strconv.FormatInt(c.ProductID, 10)+"="+string(c.Tag))
	}
	return slog.GroupValue(
		slog.String("card_id", t.CardID),
		slog.String("expected", string(t.Expected)),
		slog.Bool("reprint_set", t.Reprint),
		slog.Bool("override", t.Override),
		slog.String("candidates", strings.Join(considered, ",")),
		slog.String("rule", t.Rule),
		slog.Int64("winner", t.Winner),
	)
}
