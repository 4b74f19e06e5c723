package accounts

import (
	"relay/pkg/errs"
	"relay/pkg/logger"
	"relay/pkg/models"
	"relay/pkg/store"
	"relay/pkg/telemetry"
)

// RequireDeveloper loads the actor and rejects non-developer accounts.
func RequireDeveloper(actorID string) (models.User, error) {
	actor, err := store.GetUser(actorID)
	if err != nil {
		return actor, err
	}
	if !actor.IsDeveloper {
		return actor, errs.E(errs.NotAuthorized, "developer access required")
	}
	return actor, nil
}

// ListAllUsers returns every account, oldest first, for the admin panel.
// Full records are returned so the panel can show block state.
func ListAllUsers(actorID string) ([]models.User, error) {
	if _, err := RequireDeveloper(actorID); err != nil {
		return nil, err
	}
	return store.ListUsers()
}

// SetBlocked toggles another user's blocked flag. Blocking yourself is
// rejected before the target is even looked at.
func SetBlocked(actorID, targetID string, blocked bool) (models.User, error) {
	var u models.User
	if _, err := RequireDeveloper(actorID); err != nil {
		return u, err
	}
	if actorID == targetID {
		return u, errs.E(errs.NotAuthorized, "cannot block yourself")
	}
	u, err := store.GetUser(targetID)
	if err != nil {
		return u, err
	}
	u.IsBlocked = blocked
	if err := store.SaveUser(u); err != nil {
		return u, err
	}
	action := "block"
	if !blocked {
		action = "unblock"
	}
	telemetry.ModerationActions.WithLabelValues(action).Inc()
	logger.Info("moderation", "action", action, "actor", actorID, "target", targetID)
	return u, nil
}

// DeleteUser removes an account and everything it touched: chats it
// participated in and all their messages. Deleting yourself is rejected
// before the target is looked at.
func DeleteUser(actorID, targetID string) error {
	if _, err := RequireDeveloper(actorID); err != nil {
		return err
	}
	if actorID == targetID {
		return errs.E(errs.NotAuthorized, "cannot delete yourself")
	}
	if err := store.DeleteUserCascade(targetID); err != nil {
		return err
	}
	telemetry.ModerationActions.WithLabelValues("delete").Inc()
	logger.Info("moderation", "action", "delete", "actor", actorID, "target", targetID)
	return nil
}
