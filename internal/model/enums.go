package model

import "fmt"

// Provider 生成后端（闭集）
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
		return true
	default:
		return false
	}
}

func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown provider %q", s)
	}
	return p, nil
}

// PromptStrategy 提示词策略
type PromptStrategy string

const (
	StrategyStructured   PromptStrategy = "structured"
	StrategyExampleBased PromptStrategy = "example_based"
)

// AllStrategies returns both strategies in a fixed order; callers shuffle.
func AllStrategies() []PromptStrategy {
	return []PromptStrategy{StrategyStructured, StrategyExampleBased}
}

func (s PromptStrategy) Valid() bool {
	switch s {
	case StrategyStructured, StrategyExampleBased:
		return true
	default:
		return false
	}
}

func ParsePromptStrategy(s string) (PromptStrategy, error) {
	v := PromptStrategy(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown prompt strategy %q", s)
	}
	return v, nil
}

type ContentType string

const (
	ContentBlogIntro    ContentType = "blog_intro"
	ContentLinkedIn     ContentType = "linkedin"
	ContentAnnouncement ContentType = "announcement"
)

func (c ContentType) Valid() bool {
	switch c {
	case ContentBlogIntro, ContentLinkedIn, ContentAnnouncement:
		return true
	default:
		return false
	}
}

func ParseContentType(s string) (ContentType, error) {
	v := ContentType(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown content type %q", s)
	}
	return v, nil
}

// ExperimentStatus 实验生命周期
type ExperimentStatus string

const (
	StatusSetup      ExperimentStatus = "setup"
	StatusGenerating ExperimentStatus = "generating"
	StatusEvaluating ExperimentStatus = "evaluating"
	StatusComplete   ExperimentStatus = "complete"
)

var statusTransitions = map[ExperimentStatus][]ExperimentStatus{
	StatusSetup:      {StatusGenerating},
	StatusGenerating: {StatusEvaluating},
	StatusEvaluating: {StatusGenerating, StatusComplete},
	StatusComplete:   nil,
}

func (s ExperimentStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
// Staying in the same state is always allowed.
func (s ExperimentStatus) CanTransitionTo(next ExperimentStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseExperimentStatus(s string) (ExperimentStatus, error) {
	v := ExperimentStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown experiment status %q", s)
	}
	return v, nil
}

// PublishVerdict 评审者给出的可发布判断
type PublishVerdict string

const (
	VerdictYes       PublishVerdict = "yes"
	VerdictNo        PublishVerdict = "no"
	VerdictWithEdits PublishVerdict = "with_edits"
)

func (v PublishVerdict) Valid() bool {
	switch v {
	case VerdictYes, VerdictNo, VerdictWithEdits:
		return true
	default:
		return false
	}
}

type EvaluationState string

const (
	EvaluationReserved EvaluationState = "reserved"
	EvaluationScored   EvaluationState = "scored"
)
