package service

import (
	"context"
	"time"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
)

// policyTarget loads a policy and the object it is applied to.
func (s *service) policyTarget(tx *memory.Tx, policyID, objectID, user string) (*memory.Policy, memory.StoredObject, error) {
	p, err := tx.Get(policyID)
	if err != nil {
		return nil, nil, err
	}
	policy, ok := p.(*memory.Policy)
	if !ok {
		return nil, nil, cmis.Errorf(cmis.KindInvalidArgument, "object %s is not a policy", policyID)
	}
	obj, err := tx.Get(objectID)
	if err != nil {
		return nil, nil, err
	}
	if obj, err = resolve(tx, obj); err != nil {
		return nil, nil, err
	}
	if err := tx.CheckAccess(user, obj, cmis.PermissionWrite); err != nil {
		return nil, nil, err
	}
	td, err := s.types.Type(obj.Base().TypeID)
	if err != nil {
		return nil, nil, err
	}
	if !td.ControllablePolicy {
		return nil, nil, cmis.Errorf(cmis.KindConstraint, "type %s does not accept policies", td.ID)
	}
	return policy, obj, nil
}

func (s *service) ApplyPolicy(ctx context.Context, policyID, objectID string) (err error) {
	defer s.track("applyPolicy", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	return s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		policy, obj, err := s.policyTarget(tx, policyID, objectID, user)
		if err != nil {
			return err
		}
		b := obj.Base()
		if b.HasPolicy(policy.ID) {
			return nil
		}
		b.PolicyIDs = append(b.PolicyIDs, policy.ID)
		ch.add(cmis.ChangeTypeSecurity, obj)
		return nil
	})
}

func (s *service) RemovePolicy(ctx context.Context, policyID, objectID string) (err error) {
	defer s.track("removePolicy", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	return s.update(ctx, func(tx *memory.Tx, ch *changes) error {
		policy, obj, err := s.policyTarget(tx, policyID, objectID, user)
		if err != nil {
			return err
		}
		b := obj.Base()
		if !b.HasPolicy(policy.ID) {
			return cmis.Errorf(cmis.KindInvalidArgument, "policy %s is not applied to object %s", policy.ID, b.ID)
		}
		kept := make([]string, 0, len(b.PolicyIDs)-1)
		for _, id := range b.PolicyIDs {
			if id != policy.ID {
				kept = append(kept, id)
			}
		}
		b.PolicyIDs = kept
		ch.add(cmis.ChangeTypeSecurity, obj)
		return nil
	})
}

func (s *service) GetAppliedPolicies(ctx context.Context, objectID, filter string) (policies []*cmis.ObjectData, err error) {
	defer s.track("getAppliedPolicies", objectID, time.Now(), &err)
	user := cmis.PrincipalFrom(ctx)
	err = s.view(func(tx *memory.Tx) error {
		obj, err := getReadable(tx, objectID, user)
		if err != nil {
			return err
		}
		policies = []*cmis.ObjectData{}
		for _, id := range obj.Base().PolicyIDs {
			policy, err := tx.Get(id)
			if err != nil {
				continue
			}
			policies = append(policies, s.objectData(tx, policy, user, cmis.GetObjectOptions{Filter: filter}))
		}
		return nil
	})
	return policies, err
}
