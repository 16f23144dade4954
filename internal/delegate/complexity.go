// Package delegate implements sub-agent execution: fixed-persona delegation,
// complexity-scored smart delegation, detached background runs, and the
// durable execution tracker.
package delegate

import (
	"fmt"
	"regexp"
	"strings"
)

// Signals that push complexity up strongly.
var highComplexitySignals = compileAll(
	`\barchitect(?:ure)?\b`,
	`\bdesign\s+(?:system|pattern|decision)`,
	`\brefactor(?:ing)?\b.*(?:large|entire|whole|major)`,
	`\bmigrat(?:e|ion)\b`,
	`\boptimiz(?:e|ation)\b.*(?:performance|algorithm|query)`,
	`\bsecurity\s+(?:audit|review|analysis)`,
	`\bscalability\b`,
	`\bconcurrency\b`,
	`\bdistributed\b`,
	`\bmicroservices?\b`,
	`\binfrastructure\b`,
	`\bkubernetes|k8s|terraform|ansible\b`,
	`\bdeep\s+(?:analysis|dive|review|investigation)\b`,
	`\bcomplex\b`,
	`\bcritical\b.*(?:bug|issue|problem|error)`,
	`\bproduction\b.*(?:issue|bug|incident|outage)`,
	`\bwrite\s+(?:a\s+)?(?:full|complete|comprehensive)\b`,
	`\bfrom\s+scratch\b`,
	`\bimplement\s+(?:a\s+)?(?:new|full|complete)\b`,
	`\bmulti-?step\b`,
	`\bplan\s+and\s+implement\b`,
	`\banalyze\s+(?:and|then)\s+`,
	`\bresearch\s+(?:and|then)\s+`,
	`\bcompare\s+(?:and\s+)?(?:contrast|evaluate|choose)\b`,
	`\btrade-?offs?\b`,
	`\bpros?\s+(?:and|&)\s+cons?\b`,
	`\bdeploy\s+to\s+production\b`,
	`\bzero\s+downtime\b`,
)

// Signals of routine engineering work.
var midComplexitySignals = compileAll(
	`\bexplain\s+(?:how|why|the)\b`,
	`\bdebug(?:ging)?\b`,
	`\bfix\s+(?:this|the|a)\b.*\b(?:bug|error|issue)\b`,
	`\bwrite\s+(?:a\s+)?(?:function|class|module|script|test)\b`,
	`\badd\s+(?:a\s+)?(?:feature|endpoint|handler)\b`,
	`\bintegrat(?:e|ion)\b`,
	`\bupdate\s+(?:the|this)\b`,
	`\bconfigure\b`,
	`\bsetup\b`,
	`\breview\b`,
	`\btest(?:ing)?\b`,
)

// Signals that pull complexity down.
var lowComplexitySignals = compileAll(
	`\bwhat\s+is\b`,
	`\bshow\s+me\b`,
	`\blist\b`,
	`\bhelp\b`,
	`\bstatus\b`,
	`\bweather\b`,
	`\btime\b`,
	`\bhello\b`,
	`\bhi\b`,
	`\bthanks?\b`,
	`\bremind\b`,
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	actionVerbRe    = regexp.MustCompile(`\b(?:implement|add|write|create|build|deploy|configure|setup|test|fix|update|refactor|migrate|research|analyze)\b`)
	codeHintRe      = regexp.MustCompile(`(?:def |class |function |import )`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Assessment is the result of task complexity analysis.
type Assessment struct {
	Score         float64  `json:"score"` // 0.0 trivial .. 1.0 very complex
	Tier          string   `json:"tier"`
	Reasons       []string `json:"reasons"`
	WordCount     int      `json:"word_count"`
	SignalMatches []string `json:"signal_matches"`
}

// AssessComplexity scores a task and maps the score to a capability tier.
// Baseline 0.30; signal families, length, sentence count, chained action
// verbs and pasted code nudge the score; the result is clamped to [0, 1].
func AssessComplexity(task string) Assessment {
	lower := strings.ToLower(task)
	wordCount := len(strings.Fields(task))

	var highMatches, midMatches, lowMatches []string
	for _, re := range highComplexitySignals {
		if m := re.FindString(lower); m != "" {
			highMatches = append(highMatches, m)
		}
	}
	for _, re := range midComplexitySignals {
		if m := re.FindString(lower); m != "" {
			midMatches = append(midMatches, m)
		}
	}
	for _, re := range lowComplexitySignals {
		if m := re.FindString(lower); m != "" {
			lowMatches = append(lowMatches, m)
		}
	}

	score := 0.3
	score += min(float64(len(highMatches))*0.15, 0.45)
	score += min(float64(len(midMatches))*0.08, 0.2)
	score -= min(float64(len(lowMatches))*0.1, 0.3)

	switch {
	case wordCount > 100:
		score += 0.15
	case wordCount > 50:
		score += 0.1
	case wordCount > 25:
		score += 0.05
	case wordCount < 10:
		score -= 0.1
	}

	sentences := len(sentenceSplitRe.Split(strings.TrimSpace(task), -1))
	if sentences > 4 {
		score += 0.1
	} else if sentences > 2 {
		score += 0.05
	}

	verbs := actionVerbRe.FindAllString(lower, -1)
	switch {
	case len(verbs) >= 4:
		score += 0.2
	case len(verbs) >= 3:
		score += 0.12
	case len(verbs) >= 2:
		score += 0.05
	}

	if strings.Contains(task, "```") || codeHintRe.MatchString(task) {
		score += 0.1
	}

	score = max(0, min(score, 1))

	var tier string
	var reasons []string
	switch {
	case score >= 0.75:
		tier = "xhigh"
		reasons = append(reasons, fmt.Sprintf("Very complex task (score %.2f)", score))
		if len(highMatches) > 0 {
			reasons = append(reasons, "Key signals: "+strings.Join(firstN(highMatches, 3), ", "))
		}
		reasons = append(reasons, "Needs deep reasoning model for best results")
	case score >= 0.55:
		tier = "high"
		reasons = append(reasons, fmt.Sprintf("Complex task (score %.2f)", score))
		if len(highMatches) > 0 {
			reasons = append(reasons, "Complexity indicators: "+strings.Join(firstN(highMatches, 3), ", "))
		}
		reasons = append(reasons, "Strong model recommended for accuracy")
	case score >= 0.35:
		tier = "mid"
		reasons = append(reasons, fmt.Sprintf("Moderate complexity (score %.2f)", score))
		if len(midMatches) > 0 {
			reasons = append(reasons, "Task involves: "+strings.Join(firstN(midMatches, 3), ", "))
		}
	case score >= 0.2:
		tier = "low"
		reasons = append(reasons, fmt.Sprintf("Straightforward task (score %.2f)", score))
	default:
		tier = "fast"
		reasons = append(reasons, fmt.Sprintf("Simple task (score %.2f)", score))
		reasons = append(reasons, "Fast model is sufficient")
	}

	return Assessment{
		Score:         score,
		Tier:          tier,
		Reasons:       reasons,
		WordCount:     wordCount,
		SignalMatches: append(highMatches, midMatches...),
	}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
