package types

import (
	"encoding/json"
	"fmt"
)

// UtilizationClass is a merchantable-diameter band used to bucket per-tree statistics.
type UtilizationClass int

// Declaration order. Storage positions come from StorageIndex, never from this order.
const (
	UtilizationSmall UtilizationClass = iota
	Utilization75To125
	Utilization125To175
	Utilization175To225
	UtilizationOver225
	UtilizationAll
)

// UtilizationClassCount is the number of utilization classes, and the length of every
// per-class storage array.
const UtilizationClassCount = 6

// UtilizationClasses lists every class in declaration order.
var UtilizationClasses = []UtilizationClass{
	UtilizationSmall,
	Utilization75To125,
	Utilization125To175,
	Utilization175To225,
	UtilizationOver225,
	UtilizationAll,
}

// MerchantableClasses are the four bands that make up UtilizationAll.
var MerchantableClasses = []UtilizationClass{
	Utilization75To125,
	Utilization125To175,
	Utilization175To225,
	UtilizationOver225,
}

// CompatibilityClasses are the classes that carry compatibility variables: ALL followed
// by the four merchantable bands. SMALL has its own variables.
var CompatibilityClasses = []UtilizationClass{
	UtilizationAll,
	Utilization75To125,
	Utilization125To175,
	Utilization175To225,
	UtilizationOver225,
}

var utilizationCodes = map[UtilizationClass]string{
	UtilizationSmall:    "SMALL",
	Utilization75To125:  "U75TO125",
	Utilization125To175: "U125TO175",
	Utilization175To225: "U175TO225",
	UtilizationOver225:  "OVER225",
	UtilizationAll:      "ALL",
}

// storageIndexes is the one mapping from class to array slot.
// Slot 0 is ALL, slots 1-4 are the merchantable bands in ascending diameter, slot 5 is SMALL.
var storageIndexes = [UtilizationClassCount]int{
	UtilizationSmall:    5,
	Utilization75To125:  1,
	Utilization125To175: 2,
	Utilization175To225: 3,
	UtilizationOver225:  4,
	UtilizationAll:      0,
}

var classesByStorageIndex = [UtilizationClassCount]UtilizationClass{
	UtilizationAll,
	Utilization75To125,
	Utilization125To175,
	Utilization175To225,
	UtilizationOver225,
	UtilizationSmall,
}

// Valid reports whether uc is one of the declared classes.
func (uc UtilizationClass) Valid() bool {
	return uc >= UtilizationSmall && uc <= UtilizationAll
}

// StorageIndex returns the array slot for uc. It panics on an undeclared class.
func (uc UtilizationClass) StorageIndex() int {
	if !uc.Valid() {
		panic(fmt.Sprintf("utilization class %d out of range", int(uc)))
	}
	return storageIndexes[uc]
}

// ClassAtStorageIndex is the inverse of StorageIndex.
func ClassAtStorageIndex(i int) (UtilizationClass, error) {
	if i < 0 || i >= UtilizationClassCount {
		return 0, fmt.Errorf("storage index %d out of range", i)
	}
	return classesByStorageIndex[i], nil
}

func (uc UtilizationClass) String() string {
	if code, ok := utilizationCodes[uc]; ok {
		return code
	}
	return fmt.Sprintf("UtilizationClass(%d)", int(uc))
}

// ParseUtilizationClass resolves a class code such as "U75TO125".
func ParseUtilizationClass(code string) (UtilizationClass, error) {
	for uc, c := range utilizationCodes {
		if c == code {
			return uc, nil
		}
	}
	return 0, fmt.Errorf("unknown utilization class %q", code)
}

// MarshalText encodes the class code.
func (uc UtilizationClass) MarshalText() ([]byte, error) {
	if !uc.Valid() {
		return nil, fmt.Errorf("utilization class %d out of range", int(uc))
	}
	return []byte(uc.String()), nil
}

// UnmarshalText decodes a class code.
func (uc *UtilizationClass) UnmarshalText(text []byte) error {
	parsed, err := ParseUtilizationClass(string(text))
	if err != nil {
		return err
	}
	*uc = parsed
	return nil
}

// UtilizationVector holds one value per utilization class.
type UtilizationVector [UtilizationClassCount]float64

// Get returns the value for uc.
func (v UtilizationVector) Get(uc UtilizationClass) float64 {
	return v[uc.StorageIndex()]
}

// Set stores the value for uc.
func (v *UtilizationVector) Set(uc UtilizationClass, value float64) {
	v[uc.StorageIndex()] = value
}

// MarshalJSON encodes the vector as an object keyed by class code.
func (v UtilizationVector) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, UtilizationClassCount)
	for _, uc := range UtilizationClasses {
		out[uc.String()] = v.Get(uc)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an object keyed by class code. Missing classes are zero.
func (v *UtilizationVector) UnmarshalJSON(data []byte) error {
	var in map[string]float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*v = UtilizationVector{}
	for code, value := range in {
		uc, err := ParseUtilizationClass(code)
		if err != nil {
			return err
		}
		v.Set(uc, value)
	}
	return nil
}

// VolumeVariable identifies one of the volume kinds carried by compatibility variables.
type VolumeVariable int

// Volume variables.
const (
	WholeStemVolume VolumeVariable = iota
	CloseUtilizationVolume
	CloseUtilizationVolumeLessDecay
	CloseUtilizationVolumeLessDecayLessWastage
)

// VolumeVariables lists every volume variable in order.
var VolumeVariables = []VolumeVariable{
	WholeStemVolume,
	CloseUtilizationVolume,
	CloseUtilizationVolumeLessDecay,
	CloseUtilizationVolumeLessDecayLessWastage,
}

var volumeVariableCodes = map[VolumeVariable]string{
	WholeStemVolume:                            "WHOLE_STEM_VOL",
	CloseUtilizationVolume:                     "CLOSE_UTIL_VOL",
	CloseUtilizationVolumeLessDecay:            "CLOSE_UTIL_VOL_LESS_DECAY",
	CloseUtilizationVolumeLessDecayLessWastage: "CLOSE_UTIL_VOL_LESS_DECAY_LESS_WASTAGE",
}

func (vv VolumeVariable) String() string {
	if code, ok := volumeVariableCodes[vv]; ok {
		return code
	}
	return fmt.Sprintf("VolumeVariable(%d)", int(vv))
}

// MarshalText encodes the variable code.
func (vv VolumeVariable) MarshalText() ([]byte, error) {
	if _, ok := volumeVariableCodes[vv]; !ok {
		return nil, fmt.Errorf("volume variable %d out of range", int(vv))
	}
	return []byte(vv.String()), nil
}

// UnmarshalText decodes a variable code.
func (vv *VolumeVariable) UnmarshalText(text []byte) error {
	for v, code := range volumeVariableCodes {
		if code == string(text) {
			*vv = v
			return nil
		}
	}
	return fmt.Errorf("unknown volume variable %q", string(text))
}

// SmallVariable identifies a compatibility variable of the SMALL utilization class.
type SmallVariable int

// Small-class variables.
const (
	SmallBasalArea SmallVariable = iota
	SmallQuadMeanDiameter
	SmallLoreyHeight
	SmallWholeStemVolume
)

// SmallVariables lists every small-class variable in order.
var SmallVariables = []SmallVariable{
	SmallBasalArea,
	SmallQuadMeanDiameter,
	SmallLoreyHeight,
	SmallWholeStemVolume,
}

var smallVariableCodes = map[SmallVariable]string{
	SmallBasalArea:        "BASAL_AREA",
	SmallQuadMeanDiameter: "QUAD_MEAN_DIAMETER",
	SmallLoreyHeight:      "LOREY_HEIGHT",
	SmallWholeStemVolume:  "WHOLE_STEM_VOLUME",
}

func (sv SmallVariable) String() string {
	if code, ok := smallVariableCodes[sv]; ok {
		return code
	}
	return fmt.Sprintf("SmallVariable(%d)", int(sv))
}

// MarshalText encodes the variable code.
func (sv SmallVariable) MarshalText() ([]byte, error) {
	if _, ok := smallVariableCodes[sv]; !ok {
		return nil, fmt.Errorf("small variable %d out of range", int(sv))
	}
	return []byte(sv.String()), nil
}

// UnmarshalText decodes a variable code.
func (sv *SmallVariable) UnmarshalText(text []byte) error {
	for v, code := range smallVariableCodes {
		if code == string(text) {
			*sv = v
			return nil
		}
	}
	return fmt.Errorf("unknown small variable %q", string(text))
}
