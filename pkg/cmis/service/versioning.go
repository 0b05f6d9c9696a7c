package service

import (
	"context"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

// seriesOf returns the version series of a version or series id.
func seriesOf(tx *memory.Tx, objectID string) (*memory.VersionSeries, error) {
	obj, err := tx.Get(objectID)
	if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case *memory.VersionSeries:
		return o, nil
	case *memory.Version:
		return o.Series, nil
	}
	return nil, cmis.Errorf(cmis.KindConstraint, "object %s is not versionable", objectID)
}

// workingCopy loads the working copy with the given id and checks that
// user owns the check-out.
func (s *service) workingCopy(tx *memory.Tx, objectID, user string) (*memory.Version, error) {
	obj, err := tx.Get(objectID)
	if err != nil {
		return nil, err
	}
	if series, ok := obj.(*memory.VersionSeries); ok && series.CheckedOut() {
		obj = series.WorkingCopy()
	}
	v, ok := obj.(*memory.Version)
	if !ok {
		return nil, cmis.Errorf(cmis.KindConstraint, "object %s is not versionable", objectID)
	}
	if !v.IsPWC() {
		return nil, cmis.Errorf(cmis.KindUpdateConflict, "object %s is not a working copy", objectID)
	}
	if err := tx.CheckAccess(user, v, cmis.PermissionWrite); err != nil {
		return nil, err
	}
	if owner := v.Series.CheckedOutBy(); owner != user && user != s.store.SuperUser() {
		return nil, cmis.Errorf(cmis.KindPermissionDenied, "working copy %s is checked out by %s", v.ID, owner)
	}
	return v, nil
}

func (s *service) CheckOut(ctx context.Context, objectID string) (pwcID string, contentCopied bool, err error) {
	defer s.track("checkOut", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		series, err := seriesOf(tx, objectID)
		if err != nil {
			return err
		}
		if err := tx.CheckAccess(user, series, cmis.PermissionWrite); err != nil {
			return err
		}
		pwc, copied, err := tx.CheckOut(series, user)
		if err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeCreated, pwc)
		pwcID, contentCopied = pwc.ID, copied
		return nil
	})
	if err != nil {
		return "", false, err
	}
	s.logger.Info("document checked out", "object_id", objectID, "pwc_id", pwcID, "user", user)
	return pwcID, contentCopied, nil
}

func (s *service) CancelCheckOut(ctx context.Context, objectID string) (err error) {
	defer s.track("cancelCheckOut", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	return s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		pwc, err := s.workingCopy(tx, objectID, user)
		if err != nil {
			return err
		}
		if err := tx.CancelCheckOut(pwc); err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeDeleted, pwc)
		return nil
	})
}

func (s *service) CheckIn(ctx context.Context, req cmis.CheckInRequest) (id string, err error) {
	defer s.track("checkIn", req.ObjectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)

	content, err := s.readContent(req.Content)
	if err != nil {
		return "", err
	}
	err = s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		pwc, err := s.workingCopy(tx, req.ObjectID, user)
		if err != nil {
			return err
		}
		if content != nil {
			td, err := s.types.Type(pwc.TypeID)
			if err != nil {
				return err
			}
			if td.ContentStreamAllowed == cmis.ContentStreamNotAllowed {
				return cmis.Errorf(cmis.KindConstraint, "type %s does not allow content", td.ID)
			}
		}
		var policyIDs []string
		if len(req.PolicyIDs) > 0 {
			if policyIDs, err = checkPolicies(tx, append(append([]string(nil), pwc.PolicyIDs...), req.PolicyIDs...)); err != nil {
				return err
			}
		}
		changesAcl := req.AddAces.Len() > 0 || req.RemoveAces.Len() > 0
		if changesAcl {
			if err := tx.CheckAccess(user, pwc, cmis.PermissionAll); err != nil {
				return err
			}
		}
		if _, renames := req.Properties[cmis.PropName]; !renames {
			if err := tx.CheckWorkingCopyName(pwc); err != nil {
				return err
			}
		}

		// applyUpdate checks everything before it changes pwc.
		if len(req.Properties) > 0 {
			if err := s.applyUpdate(tx, pwc, req.Properties, true); err != nil {
				return err
			}
		}
		if content != nil {
			pwc.Content = content
		}
		if policyIDs != nil {
			pwc.PolicyIDs = policyIDs
		}
		if changesAcl {
			if _, err := applyAclChange(tx, pwc, mergeAcl(req.AddAces, req.RemoveAces)); err != nil {
				return err
			}
			ch.add(cmis.ChangeTypeSecurity, pwc.Series)
		}
		if err := tx.CheckIn(pwc, req.Major, req.Comment, user); err != nil {
			return err
		}
		ch.add(cmis.ChangeTypeUpdated, pwc)
		id = pwc.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("document checked in", "object_id", id, "major", req.Major, "user", user)
	return id, nil
}

func (s *service) GetAllVersions(ctx context.Context, objectID, filter string) (versions []*cmis.ObjectData, err error) {
	defer s.track("getAllVersions", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		series, err := seriesOf(tx, objectID)
		if err != nil {
			return err
		}
		if err := tx.CheckAccess(user, series, cmis.PermissionRead); err != nil {
			return err
		}
		opts := cmis.GetObjectOptions{Filter: filter}
		// Newest first, the working copy ahead of all committed versions.
		if pwc := series.WorkingCopy(); pwc != nil {
			versions = append(versions, s.objectData(tx, pwc, user, opts))
		}
		committed := tx.Versions(series)
		for i := len(committed) - 1; i >= 0; i-- {
			versions = append(versions, s.objectData(tx, committed[i], user, opts))
		}
		return nil
	})
	return versions, err
}

func (s *service) GetObjectOfLatestVersion(ctx context.Context, objectID string, major bool, opts cmis.GetObjectOptions) (od *cmis.ObjectData, err error) {
	defer s.track("getObjectOfLatestVersion", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		series, err := seriesOf(tx, objectID)
		if err != nil {
			return err
		}
		latest, err := tx.LatestVersion(series, major)
		if err != nil {
			return err
		}
		if err := tx.CheckAccess(user, latest, cmis.PermissionRead); err != nil {
			return err
		}
		od = s.objectData(tx, latest, user, opts)
		return nil
	})
	return od, err
}

func (s *service) GetPropertiesOfLatestVersion(ctx context.Context, objectID string, major bool, filter string) (cmis.Properties, error) {
	od, err := s.GetObjectOfLatestVersion(ctx, objectID, major, cmis.GetObjectOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	return od.Properties, nil
}
