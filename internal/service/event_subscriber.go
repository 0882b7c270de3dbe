package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/resurrector/internal/application/components/logging"
	"github.com/grand-thief-cash/resurrector/internal/application/components/redis"
	"github.com/grand-thief-cash/resurrector/internal/application/consts"
	"github.com/grand-thief-cash/resurrector/internal/application/core"
	bizConsts "github.com/grand-thief-cash/resurrector/internal/consts"
)

// EventDispatcher is the part of Resurrector the event feed needs.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []string) (DispatchResult, error)
}

// EventSubscriber feeds events published on a Redis channel into the
// dispatcher. Each message is a JSON array of event names.
type EventSubscriber struct {
	*core.BaseComponent
	RedisComp  *redis.RedisComponent `infra:"dep:redis"`
	Dispatcher EventDispatcher       `infra:"dep:resurrector"`

	channel string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewEventSubscriber(channel string) *EventSubscriber {
	return &EventSubscriber{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_SVC_EVENT_SUBSCRIBER, consts.COMPONENT_LOGGING),
		channel:       channel,
	}
}

func (s *EventSubscriber) Start(ctx context.Context) error {
	if err := s.BaseComponent.Start(ctx); err != nil {
		return err
	}
	if s.RedisComp == nil || s.RedisComp.Client() == nil || s.Dispatcher == nil {
		return fmt.Errorf("event subscriber: redis and resurrector must be injected")
	}
	sub := s.RedisComp.Client().Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("event subscriber: subscribe %s: %w", s.channel, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-loopCtx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				s.handle(loopCtx, m.Payload)
			}
		}
	}()
	logging.Infof(ctx, "event subscriber listening on %s", s.channel)
	return nil
}

func (s *EventSubscriber) handle(ctx context.Context, payload string) {
	var events []string
	if err := json.Unmarshal([]byte(payload), &events); err != nil {
		logging.Warn(ctx, "event message is not a JSON string array", zap.String("channel", s.channel), zap.Error(err))
		return
	}
	if _, err := s.Dispatcher.Dispatch(ctx, events); err != nil {
		logging.Warn(ctx, "event dispatch failed", zap.Strings("events", events), zap.Error(err))
	}
}

func (s *EventSubscriber) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return s.BaseComponent.Stop(ctx)
}

func (s *EventSubscriber) Channel() string { return s.channel }
