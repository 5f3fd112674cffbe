package rdl

import (
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/logger"
)

// familyStrategy holds per family extension points of shared reader and
// writer control flow
type familyStrategy interface {
	Family() Family
	checkVersion(v Version) error
	catalog() *modelCatalog

	// sections after robot material centers
	readTrailer(rd *reader) error
	writeTrailer(wr *writer) error

	// data right after wall trigger records
	readTriggerExtension(rd *reader) error
	writeTriggerExtension(wr *writer) error
}

func strategyFor(f Family) familyStrategy {
	switch f {
	case FamilyLegacy:
		return legacyFamily{}
	case FamilyPrimary:
		return primaryFamily{}
	default:
		return extendedFamily{}
	}
}

func checkFamilyContainer(f Family, v Version) error {
	r := familyRanges[f]
	if v.Container < r.minContainer || v.Container > r.maxContainer {
		return errors.Wrapf(ErrUnsupportedVersion, "container version %d is not %s", v.Container, f)
	}
	return nil
}

func checkFamilyVersion(f Family, v Version) error {
	if err := checkFamilyContainer(f, v); err != nil {
		return err
	}
	return v.checkGame()
}

type legacyFamily struct{}

func (legacyFamily) Family() Family                     { return FamilyLegacy }
func (legacyFamily) checkVersion(v Version) error       { return checkFamilyVersion(FamilyLegacy, v) }
func (legacyFamily) catalog() *modelCatalog             { return legacyCatalog }
func (legacyFamily) readTrailer(*reader) error          { return nil }
func (legacyFamily) readTriggerExtension(*reader) error { return nil }
func (legacyFamily) writeTriggerExtension(wr *writer) error {
	dropObjectTriggers(wr)
	return nil
}

func (legacyFamily) writeTrailer(wr *writer) error {
	if len(wr.l.DynamicLights) != 0 {
		logger.Log.Warnf("[rdl] %d dynamic lights are not supported by legacy family, skipped",
			len(wr.l.DynamicLights))
	}
	return nil
}

type primaryFamily struct{}

func (primaryFamily) Family() Family               { return FamilyPrimary }
func (primaryFamily) checkVersion(v Version) error { return checkFamilyVersion(FamilyPrimary, v) }
func (primaryFamily) catalog() *modelCatalog       { return primaryCatalog }

func (primaryFamily) readTrailer(rd *reader) error {
	if rd.version.Has(DeltaLights) {
		return rd.readDeltaLights()
	}
	return nil
}

func (primaryFamily) writeTrailer(wr *writer) error {
	if wr.version.Has(DeltaLights) {
		return wr.writeDeltaLights()
	}
	return nil
}

func (primaryFamily) readTriggerExtension(*reader) error { return nil }
func (primaryFamily) writeTriggerExtension(wr *writer) error {
	dropObjectTriggers(wr)
	return nil
}

// extendedFamily is primary family plus powerup matcens and object triggers
type extendedFamily struct {
	primaryFamily
}

func (extendedFamily) Family() Family               { return FamilyExtended }
func (extendedFamily) checkVersion(v Version) error { return checkFamilyVersion(FamilyExtended, v) }
func (extendedFamily) catalog() *modelCatalog       { return extendedCatalog }

func (f extendedFamily) readTrailer(rd *reader) error {
	if err := f.primaryFamily.readTrailer(rd); err != nil {
		return err
	}
	if rd.version.Has(PowerupMatCenters) {
		return rd.readMatCenters(rd.dir.PowerupMatCenters, "powerup")
	}
	return nil
}

func (f extendedFamily) writeTrailer(wr *writer) error {
	if err := f.primaryFamily.writeTrailer(wr); err != nil {
		return err
	}
	if wr.version.Has(PowerupMatCenters) {
		wr.dir.PowerupMatCenters = wr.writeMatCenters(wr.powerupMatCens)
	}
	return nil
}

func (extendedFamily) readTriggerExtension(rd *reader) error {
	if rd.version.Has(ObjectTriggers) {
		return rd.readObjectTriggers()
	}
	return nil
}

func (extendedFamily) writeTriggerExtension(wr *writer) error {
	if wr.version.Has(ObjectTriggers) {
		return wr.writeObjectTriggers()
	}
	dropObjectTriggers(wr)
	return nil
}

func dropObjectTriggers(wr *writer) {
	if len(wr.objectTriggers) != 0 {
		logger.Log.Warnf("[rdl] %d object triggers are not supported by %s version %d, skipped",
			len(wr.objectTriggers), wr.family.Family(), wr.version.Game)
	}
}
