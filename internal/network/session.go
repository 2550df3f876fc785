package network

import (
	"log"

	"github.com/google/uuid"

	"github.com/amalg/dci-bomberman/internal/game"
	"github.com/amalg/dci-bomberman/internal/room"
)

// Authorizer checks the admin token a client presents when joining.
type Authorizer interface {
	VerifyAdmin(token string) error
}

// serveSession runs one client connection until it drops or its room closes.
// The first message must be a join.
func serveSession(t transport, rooms *room.Manager, auth Authorizer, logger *log.Logger) {
	defer t.Close()

	env, err := t.Receive()
	if err != nil {
		logger.Printf("Failed to read join message from %s: %v", t.RemoteAddr(), err)
		return
	}
	if env.Type != MsgJoin {
		logger.Printf("Expected join message, got %s", env.Type)
		_ = t.Send(MsgError, ErrorMsg{Message: "expected join message"})
		return
	}

	var join JoinMsg
	if err := DecodePayload(env, &join); err != nil {
		logger.Printf("Failed to decode join message: %v", err)
		_ = t.Send(MsgError, ErrorMsg{Message: "invalid join message"})
		return
	}
	if join.PlayerID == "" {
		join.PlayerID = "p-" + uuid.NewString()[:8]
	}
	isAdmin := false
	if join.AdminToken != "" && auth != nil {
		if err := auth.VerifyAdmin(join.AdminToken); err != nil {
			logger.Printf("Rejected admin token from %s: %v", join.PlayerID, err)
		} else {
			isAdmin = true
		}
	}

	r, sub, err := rooms.JoinOrCreate(join.RoomID, join.PlayerID, join.IsPlaying)
	if err != nil {
		logger.Printf("Join refused for %s: %v", join.PlayerID, err)
		_ = t.Send(MsgError, ErrorMsg{Message: err.Error()})
		return
	}
	defer r.Leave(sub)

	welcome := WelcomeMsg{
		PlayerID: join.PlayerID,
		RoomID:   r.ID(),
		Config:   r.Game().Config(),
	}
	if err := t.Send(MsgWelcome, welcome); err != nil {
		logger.Printf("Failed to send welcome: %v", err)
		return
	}
	logger.Printf("Player %s joined room %s from %s", join.PlayerID, r.ID(), t.RemoteAddr())

	go pushStates(t, sub, logger)

	for {
		env, err := t.Receive()
		if err != nil {
			logger.Printf("Player %s disconnected: %v", join.PlayerID, err)
			return
		}

		switch env.Type {
		case MsgAction:
			if !sub.Playing {
				continue
			}
			var actions game.Actions
			if err := DecodePayload(env, &actions); err != nil {
				logger.Printf("Invalid action from %s: %v", join.PlayerID, err)
				continue
			}
			r.Input(join.PlayerID, actions)
		case MsgStart, MsgPause, MsgResume, MsgFillBots:
			if !isAdmin {
				logger.Printf("Refused %s from %s: not an admin", env.Type, join.PlayerID)
				_ = t.Send(MsgError, ErrorMsg{Message: string(env.Type) + " requires an admin token"})
				continue
			}
			runCommand(r, env.Type)
		default:
			logger.Printf("Unknown message type from %s: %s", join.PlayerID, env.Type)
		}
	}
}

func runCommand(r *room.Room, msgType MsgType) {
	switch msgType {
	case MsgStart:
		r.Start()
	case MsgPause:
		r.Pause()
	case MsgResume:
		r.Resume()
	case MsgFillBots:
		r.FillWithBots()
	}
}

// pushStates forwards snapshots until the subscription ends, then closes the
// transport so the read loop returns.
func pushStates(t transport, sub *room.Subscription, logger *log.Logger) {
	defer t.Close()
	for {
		select {
		case snap := <-sub.States():
			if err := t.Send(MsgState, StateMsg{State: snap}); err != nil {
				logger.Printf("Failed to send state to %s: %v", sub.PlayerID, err)
				return
			}
		case snap := <-sub.GameOver():
			if err := t.Send(MsgGameOver, StateMsg{State: snap}); err != nil {
				return
			}
		case <-sub.Done():
			return
		}
	}
}
