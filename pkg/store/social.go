package store

import (
	"errors"
	"fmt"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

var (
	ErrAlreadyFriends  = errors.New("already friends")
	ErrRequestExists   = errors.New("friend request already pending")
	ErrNoRequest       = errors.New("no pending friend request")
	ErrSelfRelation    = errors.New("cannot target yourself")
	ErrAlreadyFollowed = errors.New("already following")
)

// SendFriendRequest creates a pending edge from the requester to the named
// user. If the target already has a pending request towards the requester
// the two are made friends immediately.
func (s *Store) SendFriendRequest(fromID int64, toUsername string) error {
	target, err := s.GetByUsername(toUsername)
	if err != nil {
		return err
	}
	if target.ID == fromID {
		return ErrSelfRelation
	}

	friends, err := s.AreFriends(fromID, target.ID)
	if err != nil {
		return err
	}
	if friends {
		return ErrAlreadyFriends
	}

	// Mutual interest: accept the reverse request instead of stacking a
	// second pending edge.
	var reverse int
	if err := s.db.Get(&reverse,
		`select count(*) from friendships where requester_id = ? and target_id = ? and status = ?`,
		target.ID, fromID, string(model.FriendPending)); err != nil {
		return fmt.Errorf("checking reverse request: %w", err)
	}
	if reverse > 0 {
		_, err := s.db.Exec(
			`update friendships set status = ? where requester_id = ? and target_id = ?`,
			string(model.FriendAccepted), target.ID, fromID)
		if err != nil {
			return fmt.Errorf("accepting reverse request: %w", err)
		}
		return nil
	}

	_, err = s.db.Exec(
		`insert into friendships (requester_id, target_id, status) values (?, ?, ?)
		 on conflict(requester_id, target_id) do nothing`,
		fromID, target.ID, string(model.FriendPending))
	if err != nil {
		return fmt.Errorf("inserting friend request: %w", err)
	}
	return nil
}

// PendingRequests lists usernames with an open request towards the user.
func (s *Store) PendingRequests(id int64) ([]string, error) {
	var names []string
	err := s.db.Select(&names,
		`select u.username from friendships f
		 join users u on u.id = f.requester_id
		 where f.target_id = ? and f.status = ?
		 order by f.created_at`,
		id, string(model.FriendPending))
	if err != nil {
		return nil, fmt.Errorf("listing friend requests: %w", err)
	}
	return names, nil
}

// AcceptFriendRequest flips a pending edge from the named requester into
// an accepted, undirected friendship.
func (s *Store) AcceptFriendRequest(id int64, fromUsername string) error {
	requester, err := s.GetByUsername(fromUsername)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		`update friendships set status = ?
		 where requester_id = ? and target_id = ? and status = ?`,
		string(model.FriendAccepted), requester.ID, id, string(model.FriendPending))
	if err != nil {
		return fmt.Errorf("accepting friend request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("accepting friend request: %w", err)
	}
	if rows == 0 {
		return ErrNoRequest
	}
	return nil
}

// AreFriends reports whether an accepted edge exists in either direction.
func (s *Store) AreFriends(a, b int64) (bool, error) {
	var n int
	err := s.db.Get(&n,
		`select count(*) from friendships
		 where status = ?
		   and ((requester_id = ? and target_id = ?) or (requester_id = ? and target_id = ?))`,
		string(model.FriendAccepted), a, b, b, a)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return n > 0, nil
}

// Friends lists the usernames the user holds an accepted edge with.
func (s *Store) Friends(id int64) ([]string, error) {
	var names []string
	err := s.db.Select(&names,
		`select u.username from friendships f
		 join users u on u.id = case when f.requester_id = ? then f.target_id else f.requester_id end
		 where f.status = ? and (f.requester_id = ? or f.target_id = ?)
		 order by u.username`,
		id, string(model.FriendAccepted), id, id)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	return names, nil
}

// MutualFriends counts friends two users have in common, for profile cards.
func (s *Store) MutualFriends(a, b int64) (int, error) {
	af, err := s.friendIDs(a)
	if err != nil {
		return 0, err
	}
	bf, err := s.friendIDs(b)
	if err != nil {
		return 0, err
	}
	set := make(map[int64]struct{}, len(af))
	for _, id := range af {
		set[id] = struct{}{}
	}
	n := 0
	for _, id := range bf {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) friendIDs(id int64) ([]int64, error) {
	var ids []int64
	err := s.db.Select(&ids,
		`select case when requester_id = ? then target_id else requester_id end
		 from friendships
		 where status = ? and (requester_id = ? or target_id = ?)`,
		id, string(model.FriendAccepted), id, id)
	if err != nil {
		return nil, fmt.Errorf("listing friend ids: %w", err)
	}
	return ids, nil
}

// Block creates a directed block from the blocker to the named user.
func (s *Store) Block(blockerID int64, username string) error {
	target, err := s.GetByUsername(username)
	if err != nil {
		return err
	}
	if target.ID == blockerID {
		return ErrSelfRelation
	}
	_, err = s.db.Exec(
		`insert into blocks (blocker_id, blocked_id) values (?, ?)
		 on conflict(blocker_id, blocked_id) do nothing`,
		blockerID, target.ID)
	if err != nil {
		return fmt.Errorf("inserting block: %w", err)
	}
	return nil
}

func (s *Store) Unblock(blockerID int64, username string) error {
	target, err := s.GetByUsername(username)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`delete from blocks where blocker_id = ? and blocked_id = ?`, blockerID, target.ID)
	if err != nil {
		return fmt.Errorf("deleting block: %w", err)
	}
	return nil
}

// IsBlocked reports whether blocker has blocked blocked (directional).
func (s *Store) IsBlocked(blockerID, blockedID int64) (bool, error) {
	var n int
	err := s.db.Get(&n,
		`select count(*) from blocks where blocker_id = ? and blocked_id = ?`, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("checking block: %w", err)
	}
	return n > 0, nil
}

// Follow creates a directed follow edge towards the named user.
func (s *Store) Follow(followerID int64, username string) error {
	target, err := s.GetByUsername(username)
	if err != nil {
		return err
	}
	if target.ID == followerID {
		return ErrSelfRelation
	}

	res, err := s.db.Exec(
		`insert into follows (follower_id, target_id) values (?, ?)
		 on conflict(follower_id, target_id) do nothing`,
		followerID, target.ID)
	if err != nil {
		return fmt.Errorf("inserting follow: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting follow: %w", err)
	}
	if rows == 0 {
		return ErrAlreadyFollowed
	}
	return nil
}

// FollowerCount is used by profile cards.
func (s *Store) FollowerCount(id int64) (int, error) {
	var n int
	err := s.db.Get(&n, `select count(*) from follows where target_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("counting followers: %w", err)
	}
	return n, nil
}
