package floorplan

import (
	"fmt"
)

// Store は挿入順を保持する部屋の集合（FloorplanState）
// 名前は大文字小文字を区別せず一意
type Store struct {
	rooms []Room
}

// NewStore は空のStoreを作成
func NewStore() *Store {
	return &Store{
		rooms: make([]Room, 0),
	}
}

// Add は部屋を末尾に追加
func (s *Store) Add(spec RoomSpec) (Room, error) {
	room, err := spec.Validate()
	if err != nil {
		return Room{}, err
	}

	if s.indexExact(normalizeName(room.Name)) >= 0 {
		return Room{}, fmt.Errorf("%w: %q", ErrDuplicateName, room.Name)
	}

	s.rooms = append(s.rooms, room)
	return room, nil
}

// AddAll は複数の部屋をまとめて追加（全件成功か、何も変更しないか）
func (s *Store) AddAll(specs []RoomSpec) ([]Room, error) {
	if len(specs) == 0 {
		return nil, NewValidationError("rooms", "must contain at least one room")
	}

	seen := make(map[string]struct{}, len(specs))
	validated := make([]Room, 0, len(specs))

	for i, spec := range specs {
		room, err := spec.Validate()
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", i+1, err)
		}

		key := normalizeName(room.Name)
		if _, dup := seen[key]; dup || s.indexExact(key) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, room.Name)
		}
		seen[key] = struct{}{}
		validated = append(validated, room)
	}

	s.rooms = append(s.rooms, validated...)

	added := make([]Room, len(validated))
	copy(added, validated)
	return added, nil
}

// Remove は参照を解決し、最初に一致した部屋を1件だけ削除
func (s *Store) Remove(query string) (Room, error) {
	idx, room, err := s.Resolve(query)
	if err != nil {
		return Room{}, err
	}

	rooms := make([]Room, 0, len(s.rooms)-1)
	rooms = append(rooms, s.rooms[:idx]...)
	rooms = append(rooms, s.rooms[idx+1:]...)
	s.rooms = rooms

	return room, nil
}

// Update は参照を解決し、幅と奥行を置き換える（名前・種別・階は不変）
func (s *Store) Update(query string, width, length float64) (Room, error) {
	if err := ValidateDimensions(width, length); err != nil {
		return Room{}, err
	}

	idx, _, err := s.Resolve(query)
	if err != nil {
		return Room{}, err
	}

	s.rooms[idx].Width = width
	s.rooms[idx].Length = length

	return s.rooms[idx], nil
}

// List は部屋一覧のコピーを挿入順で返す
func (s *Store) List() []Room {
	rooms := make([]Room, len(s.rooms))
	copy(rooms, s.rooms)
	return rooms
}

// Names は部屋名を挿入順で返す
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.rooms))
	for _, r := range s.rooms {
		names = append(names, r.Name)
	}
	return names
}

// Len は部屋数を返す
func (s *Store) Len() int {
	return len(s.rooms)
}
