package services

import "wager-escrow-backend/internal/models"

// EventSink receives every state transition the engines emit. The WebSocket
// hub and the postgres journal both implement it.
type EventSink interface {
	Publish(event *models.Event)
}

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Publish(event *models.Event) {
	for _, sink := range m {
		sink.Publish(event)
	}
}

// NopSink drops events; used when no sink is wired.
type NopSink struct{}

func (NopSink) Publish(*models.Event) {}
