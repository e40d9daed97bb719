package settings

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// ConversationSettings is one conversation's entry in the global settings
// file.
type ConversationSettings struct {
	Model            string            `json:"model,omitempty"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`
}

type file struct {
	Conversations map[string]*ConversationSettings `json:"conversations"`
}

// Service stores per-conversation model and generation parameters in a
// single flat JSON file, keyed by stringified conversation id. The file is
// independent of the snapshot stores and mutated without commit semantics;
// every call is a read-modify-write of the whole file.
type Service struct {
	path string
	mu   sync.Mutex
}

func NewService(path string) *Service {
	return &Service{path: path}
}

func (s *Service) load() (*file, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &file{Conversations: map[string]*ConversationSettings{}}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read settings file")
	}

	f := &file{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, errors.Wrap(err, "could not parse settings file")
	}
	if f.Conversations == nil {
		f.Conversations = map[string]*ConversationSettings{}
	}
	return f, nil
}

func (s *Service) save(f *file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not serialize settings")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrap(err, "could not write settings file")
	}
	return nil
}

func key(conversationID int64) string {
	return strconv.FormatInt(conversationID, 10)
}

// Model returns the conversation's configured model name, or defaultModel
// when none is set.
func (s *Service) Model(conversationID int64, defaultModel string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return "", err
	}
	if cs, ok := f.Conversations[key(conversationID)]; ok && cs.Model != "" {
		return cs.Model, nil
	}
	return defaultModel, nil
}

// SetModel stores the conversation's model name.
func (s *Service) SetModel(conversationID int64, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	cs := f.Conversations[key(conversationID)]
	if cs == nil {
		cs = &ConversationSettings{}
		f.Conversations[key(conversationID)] = cs
	}
	cs.Model = model
	return s.save(f)
}

// GenerationConfig returns the conversation's generation parameters, empty
// when none are configured.
func (s *Service) GenerationConfig(conversationID int64) (*GenerationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	if cs, ok := f.Conversations[key(conversationID)]; ok && cs.GenerationConfig != nil {
		return cs.GenerationConfig, nil
	}
	return &GenerationConfig{}, nil
}

// SetGenerationValue validates and persists one generation config value.
func (s *Service) SetGenerationValue(conversationID int64, configKey, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	cs := f.Conversations[key(conversationID)]
	if cs == nil {
		cs = &ConversationSettings{}
		f.Conversations[key(conversationID)] = cs
	}
	if cs.GenerationConfig == nil {
		cs.GenerationConfig = &GenerationConfig{}
	}
	if err := cs.GenerationConfig.Set(configKey, raw); err != nil {
		return err
	}
	return s.save(f)
}

// ResetGeneration removes one generation config key, or all of them when
// configKey is empty. An emptied config is pruned from the file.
func (s *Service) ResetGeneration(conversationID int64, configKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	cs := f.Conversations[key(conversationID)]
	if cs == nil || cs.GenerationConfig == nil {
		return nil
	}

	if configKey == "" {
		cs.GenerationConfig = nil
	} else {
		if err := cs.GenerationConfig.Reset(configKey); err != nil {
			return err
		}
		if cs.GenerationConfig.IsEmpty() {
			cs.GenerationConfig = nil
		}
	}
	return s.save(f)
}
