package agent

import (
	"time"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/llm"
)

type Metrics struct {
	LLMRounds    int
	TotalTokens  int
	TotalCost    float64
	StartTime    time.Time
	ElapsedMs    int64
	ToolCalls    int
	ParseRetries int
}

type Context struct {
	Task     string
	Steps    []Step
	MaxSteps int
	Metrics  *Metrics
}

func NewContext(task string, maxSteps int) *Context {
	return &Context{
		Task:     task,
		Steps:    []Step{},
		MaxSteps: maxSteps,
		Metrics:  &Metrics{StartTime: time.Now()},
	}
}

func (c *Context) RecordStep(step Step) {
	c.Steps = append(c.Steps, step)
	c.Metrics.ToolCalls++
}

func (c *Context) AddUsage(usage llm.Usage, dur time.Duration) {
	c.Metrics.LLMRounds++
	c.Metrics.TotalTokens += usage.TotalTokens
	if c.Metrics.TotalTokens == 0 {
		c.Metrics.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	c.Metrics.TotalCost += usage.Cost
	c.Metrics.ElapsedMs = time.Since(c.Metrics.StartTime).Milliseconds()
	_ = dur
}

// ToolsUsed lists the distinct tools executed during the run, in first-use
// order.
func (c *Context) ToolsUsed() []string {
	seen := make(map[string]bool, len(c.Steps))
	out := make([]string, 0, len(c.Steps))
	for _, s := range c.Steps {
		if s.Action == "" || seen[s.Action] {
			continue
		}
		seen[s.Action] = true
		out = append(out, s.Action)
	}
	return out
}
