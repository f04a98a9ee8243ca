package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/botsmith-ai/botsmith/internal/botconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTask is a mock implementation of Task
type MockTask struct {
	mock.Mock
}

func (m *MockTask) Run(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockBotRegistry is a mock implementation of BotRegistry
type MockBotRegistry struct {
	mock.Mock
}

func (m *MockBotRegistry) ListBots() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBotRegistry) LoadConfig(botID string) (*botconfig.BotConfig, error) {
	args := m.Called(botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*botconfig.BotConfig), args.Error(1)
}

// MockChunkCache is a mock implementation of ChunkCache
type MockChunkCache struct {
	mock.Mock
}

func (m *MockChunkCache) Warm(ctx context.Context, botID string) (int, error) {
	args := m.Called(ctx, botID)
	return args.Int(0), args.Error(1)
}

func (m *MockChunkCache) Cached(botID string) bool {
	args := m.Called(botID)
	return args.Bool(0)
}

func TestWorker_StartStop(t *testing.T) {
	mockTask := new(MockTask)
	mockTask.On("Run", mock.Anything).Return(nil)

	worker := NewWorker(mockTask, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockTask.AssertCalled(t, "Run", mock.Anything)
}

func TestWorker_RunsImmediatelyOnStart(t *testing.T) {
	mockTask := new(MockTask)
	mockTask.On("Run", mock.Anything).Return(nil)

	worker := NewWorker(mockTask, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	// The hour-long ticker never fired; the call came from startup.
	mockTask.AssertNumberOfCalls(t, "Run", 1)
}

func TestWorker_ZeroIntervalRunsOnceAndWaits(t *testing.T) {
	mockTask := new(MockTask)
	mockTask.On("Run", mock.Anything).Return(nil)

	worker := NewWorker(mockTask, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	// No ticker to fire; the single call came from startup.
	mockTask.AssertNumberOfCalls(t, "Run", 1)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockTask := new(MockTask)
	mockTask.On("Run", mock.Anything).Return(nil)

	worker := NewWorker(mockTask, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockTask.AssertCalled(t, "Run", mock.Anything)
}

func TestWarmupTask_Run_WarmsEnabledBots(t *testing.T) {
	registry := new(MockBotRegistry)
	cache := new(MockChunkCache)

	registry.On("ListBots").Return([]string{"disabled-bot", "guitar-bot", "resume-bot"}, nil)
	registry.On("LoadConfig", "disabled-bot").Return(&botconfig.BotConfig{Enabled: false}, nil)
	registry.On("LoadConfig", "guitar-bot").Return(&botconfig.BotConfig{Enabled: true}, nil)
	registry.On("LoadConfig", "resume-bot").Return(&botconfig.BotConfig{Enabled: true}, nil)
	cache.On("Cached", mock.Anything).Return(false)
	cache.On("Warm", mock.Anything, "guitar-bot").Return(8, nil)
	cache.On("Warm", mock.Anything, "resume-bot").Return(12, nil)

	task := NewWarmupTask(registry, cache)
	err := task.Run(context.Background())

	assert.NoError(t, err)
	cache.AssertExpectations(t)
	cache.AssertNotCalled(t, "Warm", mock.Anything, "disabled-bot")
}

func TestWarmupTask_Run_BotFailureDoesNotStopPass(t *testing.T) {
	registry := new(MockBotRegistry)
	cache := new(MockChunkCache)

	registry.On("ListBots").Return([]string{"bad-bot", "good-bot"}, nil)
	registry.On("LoadConfig", "bad-bot").Return(&botconfig.BotConfig{Enabled: true}, nil)
	registry.On("LoadConfig", "good-bot").Return(&botconfig.BotConfig{Enabled: true}, nil)
	cache.On("Cached", mock.Anything).Return(false)
	cache.On("Warm", mock.Anything, "bad-bot").Return(0, errors.New("db down"))
	cache.On("Warm", mock.Anything, "good-bot").Return(5, nil)

	task := NewWarmupTask(registry, cache)
	err := task.Run(context.Background())

	assert.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestWarmupTask_Run_ConfigFailureSkipsBot(t *testing.T) {
	registry := new(MockBotRegistry)
	cache := new(MockChunkCache)

	registry.On("ListBots").Return([]string{"broken-bot"}, nil)
	registry.On("LoadConfig", "broken-bot").Return(nil, errors.New("bad yaml"))
	cache.On("Cached", "broken-bot").Return(false)

	task := NewWarmupTask(registry, cache)
	err := task.Run(context.Background())

	assert.NoError(t, err)
	cache.AssertNotCalled(t, "Warm", mock.Anything, mock.Anything)
}

func TestWarmupTask_Run_SkipsAlreadyCachedBots(t *testing.T) {
	registry := new(MockBotRegistry)
	cache := new(MockChunkCache)

	registry.On("ListBots").Return([]string{"cold-bot", "warm-bot"}, nil)
	registry.On("LoadConfig", "cold-bot").Return(&botconfig.BotConfig{Enabled: true}, nil)
	cache.On("Cached", "warm-bot").Return(true)
	cache.On("Cached", "cold-bot").Return(false)
	cache.On("Warm", mock.Anything, "cold-bot").Return(3, nil)

	task := NewWarmupTask(registry, cache)
	err := task.Run(context.Background())

	assert.NoError(t, err)
	cache.AssertNotCalled(t, "Warm", mock.Anything, "warm-bot")
	registry.AssertNotCalled(t, "LoadConfig", "warm-bot")
}

func TestWarmupTask_Run_ListError(t *testing.T) {
	registry := new(MockBotRegistry)
	cache := new(MockChunkCache)

	registry.On("ListBots").Return(nil, errors.New("no such directory"))

	task := NewWarmupTask(registry, cache)
	err := task.Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list bots")
}
