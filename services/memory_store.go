package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"qube-quest/models"
)

// MemoryStore is an in-process Store for tests and local tooling.
// State is sharded per wallet address; each shard has its own lock, so
// operations on different users never wait on each other.
type MemoryStore struct {
	shards sync.Map // address -> *userShard
	owners sync.Map // submission id -> address
}

type userShard struct {
	mu          sync.Mutex
	account     *models.UserAccount
	submissions map[string]*models.TaskSubmission
	spins       []models.SpinRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) shard(address string) *userShard {
	v, _ := s.shards.LoadOrStore(address, &userShard{submissions: map[string]*models.TaskSubmission{}})
	return v.(*userShard)
}

func (s *MemoryStore) existingShard(address string) (*userShard, bool) {
	v, ok := s.shards.Load(address)
	if !ok {
		return nil, false
	}
	return v.(*userShard), true
}

func (s *MemoryStore) CreateAccount(ctx context.Context, acct *models.UserAccount) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storeErr("create account", err)
	}
	sh := s.shard(acct.Address)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.account != nil {
		return false, nil
	}
	sh.account = acct.Clone()
	return true, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, address string) (*models.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("get account", err)
	}
	sh, ok := s.existingShard(address)
	if !ok {
		return nil, ErrUserNotFound
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.account == nil {
		return nil, ErrUserNotFound
	}
	return sh.account.Clone(), nil
}

func (s *MemoryStore) ApplySpin(ctx context.Context, expectedVersion int64, next *models.UserAccount, rec *models.SpinRecord) error {
	if err := ctx.Err(); err != nil {
		return storeErr("apply spin", err)
	}
	sh, ok := s.existingShard(next.Address)
	if !ok {
		return ErrUserNotFound
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if err := sh.casAccount(expectedVersion, next); err != nil {
		return err
	}
	if rec != nil {
		sh.spins = append(sh.spins, *rec)
	}
	return nil
}

func (s *MemoryStore) ListSpins(ctx context.Context, address string, limit int) ([]models.SpinRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list spins", err)
	}
	sh, ok := s.existingShard(address)
	if !ok {
		return []models.SpinRecord{}, nil
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	out := make([]models.SpinRecord, 0, limit)
	for i := len(sh.spins) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, sh.spins[i])
	}
	return out, nil
}

func (s *MemoryStore) PutSubmission(ctx context.Context, sub *models.TaskSubmission) error {
	if err := ctx.Err(); err != nil {
		return storeErr("put submission", err)
	}
	sh := s.shard(sub.UserAddress)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if prev, ok := sh.submissions[sub.ID]; ok && prev.Status == models.SubmissionApproved {
		return ErrInvalidTransition
	}
	sh.submissions[sub.ID] = sub.Clone()
	s.owners.Store(sub.ID, sub.UserAddress)
	return nil
}

func (s *MemoryStore) GetSubmission(ctx context.Context, id string) (*models.TaskSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("get submission", err)
	}
	sh, ok := s.ownerShard(id)
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sub, ok := sh.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return sub.Clone(), nil
}

func (s *MemoryStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]models.TaskSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list submissions", err)
	}
	var out []models.TaskSubmission
	s.shards.Range(func(key, value any) bool {
		if filter.UserAddress != "" && key.(string) != filter.UserAddress {
			return true
		}
		sh := value.(*userShard)
		sh.mu.Lock()
		for _, sub := range sh.submissions {
			if filter.Status != "" && sub.Status != filter.Status {
				continue
			}
			if filter.QuestID != "" && sub.QuestID != filter.QuestID {
				continue
			}
			out = append(out, *sub.Clone())
		}
		sh.mu.Unlock()
		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CommitReview(ctx context.Context, r Review) error {
	if err := ctx.Err(); err != nil {
		return storeErr("commit review", err)
	}
	if _, err := reviewTimestampColumn(r.To); err != nil {
		return err
	}
	sh, ok := s.ownerShard(r.SubmissionID)
	if !ok {
		return ErrSubmissionNotFound
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sub, ok := sh.submissions[r.SubmissionID]
	if !ok {
		return ErrSubmissionNotFound
	}
	if sub.Status != models.SubmissionPending || !sub.SubmittedAt.Equal(r.SubmittedAt) || sub.Points != r.Points {
		return ErrVersionConflict
	}
	if r.To == models.SubmissionApproved && r.Account != nil {
		if r.Account.Address != sub.UserAddress {
			return fmt.Errorf("%w: submission %s belongs to %s", ErrInvalidArgument, sub.ID, sub.UserAddress)
		}
		if err := sh.casAccount(r.ExpectedVersion, r.Account); err != nil {
			return err
		}
	}

	at := r.At
	sub.Status = r.To
	if r.To == models.SubmissionApproved {
		sub.ApprovedAt = &at
	} else {
		sub.RejectedAt = &at
	}
	return nil
}

func (s *MemoryStore) ownerShard(submissionID string) (*userShard, bool) {
	owner, ok := s.owners.Load(submissionID)
	if !ok {
		return nil, false
	}
	return s.existingShard(owner.(string))
}

// casAccount must be called with sh.mu held.
func (sh *userShard) casAccount(expectedVersion int64, next *models.UserAccount) error {
	if sh.account == nil {
		return ErrUserNotFound
	}
	if next.Points < 0 {
		return fmt.Errorf("%w: negative balance for %s", ErrInvalidArgument, next.Address)
	}
	if sh.account.Version != expectedVersion {
		return ErrVersionConflict
	}
	next.Version = expectedVersion + 1
	sh.account = next.Clone()
	return nil
}
