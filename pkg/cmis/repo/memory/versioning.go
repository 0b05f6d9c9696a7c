package memory

import (
	"github.com/tendant/simple-cmis/pkg/cmis"
)

// NewVersion returns an unsaved version for series. The first committed
// version is labelled 1.0 when major, 0.1 otherwise.
func NewVersion(series *VersionSeries, obj Object, content *cmis.ContentStream) *Version {
	return &Version{Object: obj, Series: series, Content: content}
}

// AddInitialVersion stores v as the first version of a stored series.
// With checkedOut set, v becomes the working copy owned by user and the
// series has no committed version until check-in.
func (tx *Tx) AddInitialVersion(series *VersionSeries, v *Version, major, checkedOut bool, user string) (string, error) {
	if err := tx.checkWritable(); err != nil {
		return "", err
	}
	if len(series.versions) > 0 || series.pwc != nil {
		return "", cmis.Errorf(cmis.KindConstraint, "version series %s already has versions", series.ID)
	}
	v.Series = series
	id, err := tx.Put(v)
	if err != nil {
		return "", err
	}
	if checkedOut {
		v.pwc = true
		series.pwc = v
		series.checkedOutBy = user
		return id, nil
	}
	commit(series, v, major)
	return id, nil
}

func commit(series *VersionSeries, v *Version, major bool) {
	v.pwc = false
	v.Major = major
	if prev := latest(series.versions, false); prev != nil {
		v.majorNumber, v.minorNumber = prev.majorNumber, prev.minorNumber
	}
	if major {
		v.majorNumber++
		v.minorNumber = 0
	} else {
		v.minorNumber++
	}
	series.versions = append(series.versions, v)
}

func latest(versions []*Version, major bool) *Version {
	for i := len(versions) - 1; i >= 0; i-- {
		if !major || versions[i].Major {
			return versions[i]
		}
	}
	return nil
}

// CheckOut creates the working copy of series for user. The working copy
// copies the properties of the latest version and shares its content.
// The returned flag reports whether there was content to copy.
func (tx *Tx) CheckOut(series *VersionSeries, user string) (*Version, bool, error) {
	if err := tx.checkWritable(); err != nil {
		return nil, false, err
	}
	if series.pwc != nil {
		return nil, false, cmis.Errorf(cmis.KindUpdateConflict, "version series %s is already checked out by %s", series.ID, series.checkedOutBy)
	}
	prev := latest(series.versions, false)
	if prev == nil {
		return nil, false, cmis.Errorf(cmis.KindConstraint, "version series %s has no version", series.ID)
	}

	base := NewObject(prev.Name, prev.TypeID, prev.BaseTypeID, user)
	base.Properties = prev.Properties.Clone()
	base.PolicyIDs = append([]string(nil), prev.PolicyIDs...)
	pwc := NewVersion(series, base, prev.Content)
	pwc.pwc = true
	if _, err := tx.Put(pwc); err != nil {
		return nil, false, err
	}
	series.pwc = pwc
	series.checkedOutBy = user
	series.Touch(user)
	return pwc, prev.Content != nil, nil
}

// CheckIn commits the working copy as the newest version of its series.
// The working copy keeps its id.
func (tx *Tx) CheckIn(pwc *Version, major bool, comment, user string) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if !pwc.pwc || pwc.Series.pwc != pwc {
		return cmis.Errorf(cmis.KindUpdateConflict, "object %s is not a working copy", pwc.ID)
	}
	if err := tx.CheckWorkingCopyName(pwc); err != nil {
		return err
	}
	series := pwc.Series
	series.Name = pwc.Name
	pwc.Comment = comment
	pwc.Touch(user)
	commit(series, pwc, major)
	series.pwc = nil
	series.checkedOutBy = ""
	series.Touch(user)
	return nil
}

// CheckWorkingCopyName checks that the name of the working copy is still
// free in every folder its series is filed in.
func (tx *Tx) CheckWorkingCopyName(pwc *Version) error {
	series := pwc.Series
	if pwc.Name == series.Name {
		return nil
	}
	for _, parent := range tx.Parents(series) {
		if err := tx.CheckName(parent, pwc.Name, series); err != nil {
			return err
		}
	}
	return nil
}

// CancelCheckOut discards the working copy. A series created checked out
// has no other version and is deleted with it.
func (tx *Tx) CancelCheckOut(pwc *Version) error {
	if err := tx.checkWritable(); err != nil {
		return err
	}
	if !pwc.pwc || pwc.Series.pwc != pwc {
		return cmis.Errorf(cmis.KindUpdateConflict, "object %s is not a working copy", pwc.ID)
	}
	removed := tx.cancelCheckOut(pwc)
	for _, gone := range removed {
		for _, rel := range tx.Relationships(gone) {
			tx.remove(rel.ID)
		}
	}
	return nil
}

func (tx *Tx) cancelCheckOut(pwc *Version) []string {
	series := pwc.Series
	series.pwc = nil
	series.checkedOutBy = ""
	removed := []string{tx.remove(pwc.ID)}
	if len(series.versions) == 0 {
		removed = append(removed, tx.deleteSeries(series)...)
	}
	return removed
}

// Versions returns the committed versions of series, oldest first.
func (tx *Tx) Versions(series *VersionSeries) []*Version {
	return append([]*Version(nil), series.versions...)
}

// LatestVersion returns the newest committed version, or the newest major
// version when major is set. A series without committed versions yields
// its working copy.
func (tx *Tx) LatestVersion(series *VersionSeries, major bool) (*Version, error) {
	if v := latest(series.versions, major); v != nil {
		return v, nil
	}
	if !major && series.pwc != nil {
		return series.pwc, nil
	}
	return nil, cmis.Errorf(cmis.KindObjectNotFound, "version series %s has no matching version", series.ID)
}

// IsLatest reports whether v is the newest committed version.
func (tx *Tx) IsLatest(v *Version) bool {
	return !v.pwc && latest(v.Series.versions, false) == v
}

// IsLatestMajor reports whether v is the newest major version.
func (tx *Tx) IsLatestMajor(v *Version) bool {
	return !v.pwc && latest(v.Series.versions, true) == v
}

// CheckedOut returns all working copies in id order.
func (tx *Tx) CheckedOut() []*Version {
	var out []*Version
	tx.Walk(func(obj StoredObject) bool {
		if v, ok := obj.(*Version); ok && v.pwc {
			out = append(out, v)
		}
		return true
	})
	return out
}
