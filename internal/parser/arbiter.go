package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/judge"
)

// Arbiter implements judge.Arbitrator over the shared OpenAI client. It is
// only consulted when the caller passed use_llm; every failure is returned
// to the judge, which treats it as "no opinion".
type Arbiter struct {
	client *OpenAIClient
}

// NewArbiter wraps an OpenAI client as a judge arbitrator.
func NewArbiter(client *OpenAIClient) *Arbiter {
	return &Arbiter{client: client}
}

const arbiterSystemPrompt = "你是地址消歧裁决器。给定一个查询地址和若干候选地址（含规则打分），" +
	"判断查询地址与哪个候选是同一物理位置。\n" +
	"只输出 JSON：{\"decision\": \"SAME\"|\"UNSURE\"|\"DIFFERENT\", " +
	"\"best_idx\": <候选下标，从0开始>, \"score\": <0到1>, \"reason\": \"简短理由\"}。"

type arbiterPayload struct {
	Query      arbiterSide   `json:"query"`
	Candidates []arbiterSide `json:"candidates"`
}

type arbiterSide struct {
	RID      string                `json:"rid"`
	Raw      string                `json:"raw_address"`
	Parsed   *models.ParsedAddress `json:"parsed"`
	PreScore *models.PreScore      `json:"pre_score,omitempty"`
}

type arbiterReply struct {
	Decision string  `json:"decision"`
	BestIdx  int     `json:"best_idx"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}

// Arbitrate sends the full structured pair context and maps the reply onto a
// judge verdict.
func (a *Arbiter) Arbitrate(ctx context.Context, query judge.Pair, candidates []judge.Pair,
	preScores []models.MatchResult) (*judge.Verdict, error) {

	payload := arbiterPayload{
		Query: arbiterSide{
			RID:    query.Record.RID,
			Raw:    query.Record.RawAddress,
			Parsed: query.Parsed,
		},
	}
	for i, cand := range candidates {
		side := arbiterSide{
			RID:    cand.Record.RID,
			Raw:    cand.Record.RawAddress,
			Parsed: cand.Parsed,
		}
		if i < len(preScores) {
			side.PreScore = &models.PreScore{
				RID:      cand.Record.RID,
				Decision: preScores[i].Decision,
				Score:    preScores[i].Score,
				Features: preScores[i].FeatureScores,
			}
		}
		payload.Candidates = append(payload.Candidates, side)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode arbitration payload: %w", err)
	}

	content, err := a.client.complete(ctx, arbiterSystemPrompt, string(body))
	if err != nil {
		return nil, err
	}

	var reply arbiterReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("arbiter returned malformed JSON: %w", err)
	}

	decision := models.Decision(strings.ToUpper(strings.TrimSpace(reply.Decision)))
	switch decision {
	case models.DecisionSame, models.DecisionUnsure, models.DecisionDifferent:
	default:
		return nil, fmt.Errorf("arbiter returned unknown decision %q", reply.Decision)
	}

	return &judge.Verdict{
		Decision: decision,
		BestIdx:  reply.BestIdx,
		Score:    reply.Score,
		Reason:   reply.Reason,
	}, nil
}

var _ judge.Arbitrator = (*Arbiter)(nil)
