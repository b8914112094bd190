package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"assetedge/config"
	"assetedge/market"
)

// Reformatter is the reshaping collaborator the export path depends on.
// Its output is free text from a language model and must be parsed
// defensively.
type Reformatter interface {
	ReformatForExport(ctx context.Context, records []market.PerformanceRecord) (string, error)
}

// InsightService generates market commentary and export reformatting
// through a chat model. Both outputs are unreliable free text; callers own
// the fallback behavior.
type InsightService struct {
	chatModel model.ChatModel
	logger    func(string)
}

// NewInsightService builds the chat model from configuration. Only
// OpenAI-compatible providers are supported; custom gateways go through
// BaseURL.
func NewInsightService(cfg config.Config, logger func(string)) (*InsightService, error) {
	if cfg.LLMProvider != "" && cfg.LLMProvider != "openai" {
		return nil, WrapError("insight", "NewInsightService",
			fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider))
	}

	modelCfg := &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.ModelName,
	}
	if cfg.MaxTokens > 0 {
		modelCfg.MaxTokens = &cfg.MaxTokens
	}
	chatModel, err := openai.NewChatModel(context.Background(), modelCfg)
	if err != nil {
		return nil, WrapError("insight", "NewInsightService",
			fmt.Errorf("failed to create chat model: %v", err))
	}
	return &InsightService{chatModel: chatModel, logger: logger}, nil
}

func (s *InsightService) log(msg string) {
	if s.logger != nil {
		s.logger(msg)
	}
}

// GenerateInsights asks the model for a short commentary on the given
// records. contextLabel names the view the records came from, e.g.
// "Market Performance Summary".
func (s *InsightService) GenerateInsights(ctx context.Context, records []market.PerformanceRecord, contextLabel string) (string, error) {
	if len(records) == 0 {
		return "", WrapError("insight", "GenerateInsights", fmt.Errorf("no records to analyze"))
	}

	out, err := s.run(ctx, []*schema.Message{
		schema.SystemMessage("You are a financial analyst generating market performance insights. Provide bullet points. Be accurate."),
		schema.UserMessage(insightPrompt(records, contextLabel)),
	})
	if err != nil {
		return "", WrapError("insight", "GenerateInsights", err)
	}
	return out, nil
}

// insightPrompt lists every record; the model sees the whole data set, not
// a truncation of it.
func insightPrompt(records []market.PerformanceRecord, contextLabel string) string {
	var summary strings.Builder
	for i, rec := range records {
		id := rec.MarketIndexID
		if id == "" {
			id = "N/A"
		}
		fmt.Fprintf(&summary, "%d. %s (ID: %s): MTD %s, QTD %s, YTD %s\n",
			i+1, rec.IndexName, id,
			market.FormatValue(rec.MTD), market.FormatValue(rec.QTD), market.FormatValue(rec.YTD))
	}

	return fmt.Sprintf(`Generate a concise insight about the performance of these top market indices based on the %s.
Data:
%s
Provide insights in less than 50 words. Focus on:
- Overall performance trends
- Standout indices
- Any notable patterns or observations`, contextLabel, summary.String())
}

// ReformatForExport asks the model to reshape records into the fixed JSON
// array the spreadsheet writer expects. The response is returned verbatim.
func (s *InsightService) ReformatForExport(ctx context.Context, records []market.PerformanceRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", WrapError("insight", "ReformatForExport", err)
	}

	prompt := fmt.Sprintf(`Format the following data for Excel export:

%s

Output as JSON array of objects with keys "Index", "ID", and "MTD" or "QTD" or "YTD" (based on the relevant sections). Just make json with the index names and whichever of the MTD, QTD, YTD performance values are present.`, string(data))

	out, err := s.run(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", WrapError("insight", "ReformatForExport", err)
	}
	return out, nil
}

// run compiles a single-model chain and invokes it with the given history.
func (s *InsightService) run(ctx context.Context, messages []*schema.Message) (string, error) {
	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(s.chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return "", err
	}

	resp, err := runnable.Invoke(ctx, messages)
	if err != nil {
		return "", err
	}
	s.log(fmt.Sprintf("[INSIGHT] model returned %d bytes", len(resp.Content)))
	return resp.Content, nil
}
