package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// ChatRule maps trigger keywords onto a canned reply. Rules are evaluated in
// order; the first rule with any keyword contained in the lowercased message
// wins.
type ChatRule struct {
	Keywords []string `yaml:"keywords"`
	Response string   `yaml:"response"`
}

type chatRulesFile struct {
	Rules    []ChatRule `yaml:"rules"`
	Fallback string     `yaml:"fallback"`
}

// defaultChatRules is the built-in rule set, used when no rules file is
// configured.
var defaultChatRules = chatRulesFile{
	Rules: []ChatRule{
		{Keywords: []string{"hello", "hi"}, Response: "Hello! How can I assist you today?"},
		{Keywords: []string{"appointment"}, Response: "Would you like to schedule a new appointment or check your existing appointments?"},
		{Keywords: []string{"schedule", "book"}, Response: "To schedule an appointment, please provide your preferred date and time, and I'll check availability."},
		{Keywords: []string{"cancel"}, Response: "If you need to cancel an appointment, please provide the date and time, and I'll help you with that."},
		{Keywords: []string{"patient", "client"}, Response: "You can view all your patients in the Patients tab. Would you like me to help you find a specific patient?"},
		{Keywords: []string{"thank"}, Response: "You're welcome! Is there anything else I can help you with?"},
	},
	Fallback: "I'm not sure how to respond to that. Can you please clarify?",
}

type ChatService interface {
	// Reply resolves a response, persists the exchange, and returns it.
	Reply(ctx context.Context, userID uuid.UUID, message string) (*types.ChatMessage, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatMessage, error)
}

type chatService struct {
	log      *logger.Logger
	messages repos.ChatMessageRepo
	rules    []ChatRule
	fallback string
}

func NewChatService(log *logger.Logger, messages repos.ChatMessageRepo, rulesPath string) (ChatService, error) {
	serviceLog := log.With("service", "ChatService")

	rules := defaultChatRules
	if path := strings.TrimSpace(rulesPath); path != "" {
		loaded, err := loadChatRules(path)
		if err != nil {
			return nil, fmt.Errorf("load chat rules: %w", err)
		}
		rules = loaded
		serviceLog.Info("Loaded chat rules", "path", path, "rule_count", len(rules.Rules))
	}

	fallback := rules.Fallback
	if fallback == "" {
		fallback = defaultChatRules.Fallback
	}

	return &chatService{
		log:      serviceLog,
		messages: messages,
		rules:    rules.Rules,
		fallback: fallback,
	}, nil
}

func loadChatRules(path string) (chatRulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chatRulesFile{}, err
	}
	var parsed chatRulesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return chatRulesFile{}, err
	}
	if len(parsed.Rules) == 0 {
		return chatRulesFile{}, fmt.Errorf("rules file %s contains no rules", path)
	}
	return parsed, nil
}

func (cs *chatService) Reply(ctx context.Context, userID uuid.UUID, message string) (*types.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidArgument)
	}

	response := cs.resolve(message)

	row := &types.ChatMessage{
		ID:       uuid.New(),
		UserID:   userID,
		Message:  message,
		Response: response,
	}
	created, err := cs.messages.Create(ctx, nil, []*types.ChatMessage{row})
	if err != nil {
		return nil, fmt.Errorf("persist chat message: %w", err)
	}
	return created[0], nil
}

func (cs *chatService) resolve(message string) string {
	lowered := strings.ToLower(message)
	for _, rule := range cs.rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				return rule.Response
			}
		}
	}
	return cs.fallback
}

func (cs *chatService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	return cs.messages.ListByUser(ctx, nil, userID, limit)
}
