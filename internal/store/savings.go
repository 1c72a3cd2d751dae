package store

import (
	"log/slog"

	"budget/internal/core"
	applog "budget/internal/log"
)

// Goals returns the savings goals in insertion order, empty when no
// user is active.
func (s *Store) Goals() []core.SavingsGoal {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return nil
	}
	return readCollection[core.SavingsGoal](s, user.ID, core.CollectionSavings)
}

// AddGoal creates a savings goal. The saved amount may start above
// zero when the user is recording an existing pot.
func (s *Store) AddGoal(name string, target, saved core.Money) (core.SavingsGoal, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.SavingsGoal{}, core.ErrNoUser
	}

	now := s.now()
	goal := core.SavingsGoal{
		ID:           s.nextID(),
		GoalName:     name,
		TargetAmount: target,
		SavedAmount:  saved,
		CreatedDate:  core.DateOf(now),
		CreatedAt:    now.UTC(),
		UserID:       user.ID,
	}
	if err := goal.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}

	goals := readCollection[core.SavingsGoal](s, user.ID, core.CollectionSavings)
	goals = append(goals, goal)
	if err := writeCollection(s, user.ID, core.CollectionSavings, goals); err != nil {
		return core.SavingsGoal{}, err
	}

	slog.Debug("Savings goal added",
		applog.FieldUserID, user.ID, applog.FieldRecordID, goal.ID, applog.FieldGoalName, goal.GoalName)

	return goal, nil
}

// UpdateGoal merges the patch over the stored goal. Direct edits do
// not re-clamp SavedAmount against TargetAmount; the increment path is
// the only place clamping happens.
func (s *Store) UpdateGoal(id string, patch core.GoalPatch) (core.SavingsGoal, error) {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.SavingsGoal{}, core.ErrNoUser
	}

	goals := readCollection[core.SavingsGoal](s, user.ID, core.CollectionSavings)
	idx := -1
	for i := range goals {
		if goals[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return core.SavingsGoal{}, core.ErrNotFound
	}

	updated := goals[idx]
	if patch.GoalName != nil {
		updated.GoalName = *patch.GoalName
	}
	if patch.TargetAmount != nil {
		updated.TargetAmount = *patch.TargetAmount
	}
	if patch.SavedAmount != nil {
		updated.SavedAmount = *patch.SavedAmount
	}
	if err := updated.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	stamp := s.now().UTC()
	updated.UpdatedAt = &stamp

	goals[idx] = updated
	if err := writeCollection(s, user.ID, core.CollectionSavings, goals); err != nil {
		return core.SavingsGoal{}, err
	}
	return updated, nil
}

// AddToGoal raises the goal's saved amount by a positive increment,
// clamped at the target amount.
func (s *Store) AddToGoal(id string, amount core.Money) (core.SavingsGoal, error) {
	if amount.Cents <= 0 {
		return core.SavingsGoal{}, core.ErrInvalidAmount
	}

	user, ok := s.identity.CurrentUser()
	if !ok {
		return core.SavingsGoal{}, core.ErrNoUser
	}

	goals := readCollection[core.SavingsGoal](s, user.ID, core.CollectionSavings)
	for i := range goals {
		if goals[i].ID != id {
			continue
		}
		goals[i].SavedAmount = goals[i].SavedAmount.Add(amount).Min(goals[i].TargetAmount)
		stamp := s.now().UTC()
		goals[i].UpdatedAt = &stamp

		if err := writeCollection(s, user.ID, core.CollectionSavings, goals); err != nil {
			return core.SavingsGoal{}, err
		}
		return goals[i], nil
	}
	return core.SavingsGoal{}, core.ErrNotFound
}
