package typesys

import "github.com/tendant/simple-cmis/pkg/cmis"

func sysProp(id string, typ cmis.PropertyType, card cmis.Cardinality, upd cmis.Updatability, required bool) *cmis.PropertyDefinition {
	return &cmis.PropertyDefinition{
		ID:           id,
		LocalName:    id,
		DisplayName:  id,
		Type:         typ,
		Cardinality:  card,
		Updatability: upd,
		Required:     required,
		Queryable:    true,
		Orderable:    card == cmis.CardinalitySingle,
	}
}

func commonProps() []*cmis.PropertyDefinition {
	single, ro := cmis.CardinalitySingle, cmis.UpdatabilityReadOnly
	return []*cmis.PropertyDefinition{
		sysProp(cmis.PropName, cmis.PropertyTypeString, single, cmis.UpdatabilityReadWrite, true),
		sysProp(cmis.PropDescription, cmis.PropertyTypeString, single, cmis.UpdatabilityReadWrite, false),
		sysProp(cmis.PropObjectID, cmis.PropertyTypeID, single, ro, false),
		sysProp(cmis.PropBaseTypeID, cmis.PropertyTypeID, single, ro, false),
		sysProp(cmis.PropObjectTypeID, cmis.PropertyTypeID, single, cmis.UpdatabilityOnCreate, true),
		sysProp(cmis.PropCreatedBy, cmis.PropertyTypeString, single, ro, false),
		sysProp(cmis.PropCreationDate, cmis.PropertyTypeDateTime, single, ro, false),
		sysProp(cmis.PropLastModifiedBy, cmis.PropertyTypeString, single, ro, false),
		sysProp(cmis.PropLastModificationDate, cmis.PropertyTypeDateTime, single, ro, false),
		sysProp(cmis.PropChangeToken, cmis.PropertyTypeString, single, ro, false),
	}
}

func baseTypes() []*cmis.TypeDefinition {
	single, ro := cmis.CardinalitySingle, cmis.UpdatabilityReadOnly

	document := &cmis.TypeDefinition{
		ID:                       string(cmis.BaseTypeDocument),
		BaseID:                   cmis.BaseTypeDocument,
		Creatable:                true,
		Fileable:                 true,
		Queryable:                true,
		ControllableACL:          true,
		ControllablePolicy:       true,
		IncludedInSupertypeQuery: true,
		ContentStreamAllowed:     cmis.ContentStreamAllowedOpt,
		OwnPropertyDefinitions: append(commonProps(),
			sysProp(cmis.PropIsImmutable, cmis.PropertyTypeBoolean, single, ro, false),
			sysProp(cmis.PropIsLatestVersion, cmis.PropertyTypeBoolean, single, ro, false),
			sysProp(cmis.PropIsMajorVersion, cmis.PropertyTypeBoolean, single, ro, false),
			sysProp(cmis.PropIsLatestMajorVersion, cmis.PropertyTypeBoolean, single, ro, false),
			sysProp(cmis.PropIsPrivateWorkingCopy, cmis.PropertyTypeBoolean, single, ro, false),
			sysProp(cmis.PropVersionLabel, cmis.PropertyTypeString, single, ro, false),
			sysProp(cmis.PropVersionSeriesID, cmis.PropertyTypeID, single, ro, false),
			sysProp(cmis.PropIsVersionSeriesCheckedOut, cmis.PropertyTypeBoolean, single, ro, false),
			sysProp(cmis.PropVersionSeriesCheckedOutBy, cmis.PropertyTypeString, single, ro, false),
			sysProp(cmis.PropVersionSeriesCheckedOutID, cmis.PropertyTypeID, single, ro, false),
			sysProp(cmis.PropCheckinComment, cmis.PropertyTypeString, single, ro, false),
			sysProp(cmis.PropContentStreamLength, cmis.PropertyTypeInteger, single, ro, false),
			sysProp(cmis.PropContentStreamMimeType, cmis.PropertyTypeString, single, ro, false),
			sysProp(cmis.PropContentStreamFileName, cmis.PropertyTypeString, single, ro, false),
			sysProp(cmis.PropContentStreamID, cmis.PropertyTypeID, single, ro, false),
		),
	}

	folder := &cmis.TypeDefinition{
		ID:                       string(cmis.BaseTypeFolder),
		BaseID:                   cmis.BaseTypeFolder,
		Creatable:                true,
		Fileable:                 true,
		Queryable:                true,
		ControllableACL:          true,
		ControllablePolicy:       true,
		IncludedInSupertypeQuery: true,
		OwnPropertyDefinitions: append(commonProps(),
			sysProp(cmis.PropParentID, cmis.PropertyTypeID, single, ro, false),
			sysProp(cmis.PropPath, cmis.PropertyTypeString, single, ro, false),
			sysProp(cmis.PropAllowedChildObjectTypeIDs, cmis.PropertyTypeID, cmis.CardinalityMulti, cmis.UpdatabilityReadWrite, false),
		),
	}

	relationship := &cmis.TypeDefinition{
		ID:                       string(cmis.BaseTypeRelationship),
		BaseID:                   cmis.BaseTypeRelationship,
		Creatable:                true,
		Queryable:                true,
		ControllableACL:          true,
		ControllablePolicy:       true,
		IncludedInSupertypeQuery: true,
		OwnPropertyDefinitions: append(commonProps(),
			sysProp(cmis.PropSourceID, cmis.PropertyTypeID, single, cmis.UpdatabilityOnCreate, true),
			sysProp(cmis.PropTargetID, cmis.PropertyTypeID, single, cmis.UpdatabilityOnCreate, true),
		),
	}

	policy := &cmis.TypeDefinition{
		ID:                       string(cmis.BaseTypePolicy),
		BaseID:                   cmis.BaseTypePolicy,
		Creatable:                true,
		Fileable:                 true,
		Queryable:                true,
		ControllableACL:          true,
		ControllablePolicy:       true,
		IncludedInSupertypeQuery: true,
		OwnPropertyDefinitions: append(commonProps(),
			sysProp(cmis.PropPolicyText, cmis.PropertyTypeString, single, cmis.UpdatabilityReadWrite, false),
		),
	}

	types := []*cmis.TypeDefinition{document, folder, relationship, policy}
	for _, t := range types {
		t.LocalName = t.ID
		t.QueryName = t.ID
		t.DisplayName = t.ID
		t.LocalNamespace = "cmis"
	}
	return types
}
