package reason

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// Client implements Reasoner against the Anthropic API.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
	// catalog supplies the current agent snapshot for planning prompts.
	// May be nil, in which case plans are produced without an agent list.
	catalog func() []models.Agent
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// Catalog supplies the agent snapshot used in planning prompts.
	Catalog func() []models.Agent
}

// NewClient creates a new Anthropic-backed reasoner.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	return &Client{
		inner:   anthropic.NewClient(opts...),
		model:   model,
		catalog: cfg.Catalog,
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:         "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.Model("claude-sonnet-4-5-20250929"): "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.Model("claude-haiku-4-5-20251001"):  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:         "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:         "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// complete sends one user prompt and returns the concatenated text reply.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty reply from model")
	}
	return text.String(), nil
}

// Understand classifies a task into an understanding record.
func (c *Client) Understand(ctx context.Context, task TaskInput) (*models.Understanding, error) {
	prompt := fmt.Sprintf(understandPrompt, task.Title, task.Priority, task.Description)
	reply, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseUnderstanding(reply)
}

// Plan produces an ordered project plan for an understood task.
func (c *Client) Plan(ctx context.Context, task TaskInput, understanding *models.Understanding) (*models.ProjectPlan, error) {
	var agentList strings.Builder
	if c.catalog != nil {
		for _, a := range c.catalog() {
			fmt.Fprintf(&agentList, "- %s: %s\n", a.ID, a.Specialization)
		}
	}
	if agentList.Len() == 0 {
		agentList.WriteString("(no catalog available)\n")
	}

	prompt := fmt.Sprintf(planPrompt,
		task.Title,
		understanding.PrimaryIntent,
		understanding.Complexity,
		strings.Join(understanding.RequiredExpertise, ", "),
		task.Description,
		agentList.String())

	reply, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParsePlan(reply)
}

// Decompose breaks assignment elements into concrete bot specs.
func (c *Client) Decompose(ctx context.Context, elements []string, agent AgentContext) (*models.Decomposition, error) {
	var items strings.Builder
	for i, e := range elements {
		fmt.Fprintf(&items, "%d. %s\n", i+1, e)
	}

	prompt := fmt.Sprintf(decomposePrompt, agent.Name, agent.Specialization, items.String())
	reply, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseDecomposition(reply)
}

// Execute runs one simulated unit of work and returns its output text.
func (c *Client) Execute(ctx context.Context, spec models.BotSpec, agent AgentContext) (string, error) {
	prompt := fmt.Sprintf(executePrompt, agent.Name, agent.Specialization, spec.Description, spec.ExpectedOutput)
	return c.complete(ctx, prompt)
}

// Respond answers a free-form message about a task status snapshot.
func (c *Client) Respond(ctx context.Context, statusSnapshot string, message string) (string, error) {
	prompt := fmt.Sprintf(respondPrompt, statusSnapshot, message)
	return c.complete(ctx, prompt)
}

// Compile-time check that Client satisfies Reasoner.
var _ Reasoner = (*Client)(nil)
