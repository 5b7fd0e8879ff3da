package websocket

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Conn живое соединение, которому реестр может отправлять кадры
type Conn interface {
	ID() uuid.UUID
	Send(frame []byte) error
	Close() error
}

// Delivery итог рассылки одного кадра по комнате
type Delivery struct {
	Delivered int
	Failed    []uuid.UUID
}

type room struct {
	mu      sync.RWMutex
	members map[uuid.UUID]Conn

	// order сериализует запись и рассылку внутри комнаты
	order sync.Mutex
	busy  int
}

// Registry хранит соединения, сгруппированные по комнатам (chat_id)
type Registry struct {
	mu    sync.RWMutex
	rooms map[int64]*room
}

// NewRegistry создает пустой реестр соединений
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[int64]*room)}
}

// acquire возвращает комнату, создавая ее при необходимости, и помечает ее занятой
func (r *Registry) acquire(roomID int64) *room {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[uuid.UUID]Conn)}
		r.rooms[roomID] = rm
	}
	rm.busy++
	return rm
}

// release снимает отметку занятости и удаляет пустую комнату
func (r *Registry) release(roomID int64, rm *room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm.busy--
	if rm.busy > 0 {
		return
	}
	rm.mu.RLock()
	empty := len(rm.members) == 0
	rm.mu.RUnlock()
	if empty && r.rooms[roomID] == rm {
		delete(r.rooms, roomID)
	}
}

func (r *Registry) lookup(roomID int64) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

// Register добавляет соединение в комнату
func (r *Registry) Register(roomID int64, conn Conn) {
	rm := r.acquire(roomID)
	rm.mu.Lock()
	rm.members[conn.ID()] = conn
	rm.mu.Unlock()
	r.release(roomID, rm)

	log.Printf("WebSocket client %s joined chat %d", conn.ID(), roomID)
}

// Unregister удаляет соединение из комнаты. Повторный вызов ничего не делает и возвращает false.
func (r *Registry) Unregister(roomID int64, conn Conn) bool {
	if r.lookup(roomID) == nil {
		return false
	}

	rm := r.acquire(roomID)
	defer r.release(roomID, rm)

	rm.mu.Lock()
	_, ok := rm.members[conn.ID()]
	delete(rm.members, conn.ID())
	rm.mu.Unlock()

	if ok {
		log.Printf("WebSocket client %s left chat %d", conn.ID(), roomID)
	}
	return ok
}

// RoomSize возвращает количество соединений в комнате
func (r *Registry) RoomSize(roomID int64) int {
	rm := r.lookup(roomID)
	if rm == nil {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.members)
}

// Broadcast отправляет кадр всем соединениям комнаты.
// Соединения, не принявшие кадр, удаляются из комнаты и закрываются в фоне,
// чтобы медленный клиент не задерживал упорядоченную рассылку.
func (r *Registry) Broadcast(roomID int64, frame []byte) Delivery {
	var delivery Delivery

	rm := r.lookup(roomID)
	if rm == nil {
		return delivery
	}

	rm.mu.RLock()
	members := make([]Conn, 0, len(rm.members))
	for _, conn := range rm.members {
		members = append(members, conn)
	}
	rm.mu.RUnlock()

	var failed []Conn
	for _, conn := range members {
		if err := conn.Send(frame); err != nil {
			log.Printf("Error sending to client %s in chat %d: %v", conn.ID(), roomID, err)
			failed = append(failed, conn)
			continue
		}
		delivery.Delivered++
	}

	for _, conn := range failed {
		r.Unregister(roomID, conn)
		go conn.Close()
		delivery.Failed = append(delivery.Failed, conn.ID())
	}
	return delivery
}

// Sequence выполняет fn под упорядочивающей блокировкой комнаты.
// Другие комнаты при этом не блокируются.
func (r *Registry) Sequence(roomID int64, fn func()) {
	rm := r.acquire(roomID)
	defer r.release(roomID, rm)

	rm.order.Lock()
	defer rm.order.Unlock()
	fn()
}

// Shutdown закрывает все живые соединения и очищает реестр
func (r *Registry) Shutdown() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[int64]*room)
	r.mu.Unlock()

	for _, rm := range rooms {
		rm.mu.Lock()
		for id, conn := range rm.members {
			conn.Close()
			delete(rm.members, id)
		}
		rm.mu.Unlock()
	}
}
