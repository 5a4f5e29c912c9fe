package economy

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownHousing   = errors.New("unknown housing tier")
	ErrUnknownEducation = errors.New("unknown education level")
	ErrEducationOrder   = errors.New("education levels must be taken in order")
	ErrAlreadyEnrolled  = errors.New("already enrolled")
)

// HousingTier - жилье игрока
type HousingTier string

const (
	HousingShared    HousingTier = "shared_room"
	HousingApartment HousingTier = "apartment"
	HousingHouse     HousingTier = "house"
	HousingMansion   HousingTier = "mansion"
	HousingEstate    HousingTier = "estate"
)

// Housing описывает уровень жилья
type Housing struct {
	Tier             HousingTier `json:"tier"`
	Name             string      `json:"name"`
	MonthlyCost      float64     `json:"monthly_cost"`
	MaxRelationships int         `json:"max_relationships"`
}

var HousingOrder = []HousingTier{HousingShared, HousingApartment, HousingHouse, HousingMansion, HousingEstate}

var housing = map[HousingTier]Housing{
	HousingShared:    {HousingShared, "Shared Room", 400, 10},
	HousingApartment: {HousingApartment, "Apartment", 1_200, 25},
	HousingHouse:     {HousingHouse, "House", 3_000, 50},
	HousingMansion:   {HousingMansion, "Mansion", 15_000, 100},
	HousingEstate:    {HousingEstate, "Estate", 60_000, 250},
}

// LookupHousing ищет уровень жилья
func LookupHousing(t HousingTier) (Housing, error) {
	h, ok := housing[t]
	if !ok {
		return Housing{}, fmt.Errorf("%w: %s", ErrUnknownHousing, t)
	}
	return h, nil
}

// EducationLevel - ступень образования, 0..5
type EducationLevel int

const (
	EducationNone EducationLevel = iota
	EducationHighSchool
	EducationAssociate
	EducationBachelor
	EducationMaster
	EducationDoctorate
)

// Degree описывает ступень образования
type Degree struct {
	Level       EducationLevel `json:"level"`
	Name        string         `json:"name"`
	Cost        float64        `json:"cost"`
	StudyDays   int            `json:"study_days"`
	IncomeBonus float64        `json:"income_bonus"` // множитель дохода владельца
}

var degrees = []Degree{
	{EducationNone, "None", 0, 0, 1.0},
	{EducationHighSchool, "High School", 500, 30, 1.05},
	{EducationAssociate, "Associate Degree", 5_000, 60, 1.10},
	{EducationBachelor, "Bachelor's Degree", 20_000, 120, 1.20},
	{EducationMaster, "Master's Degree", 40_000, 180, 1.30},
	{EducationDoctorate, "Doctorate", 80_000, 365, 1.50},
}

// LookupDegree ищет ступень образования
func LookupDegree(l EducationLevel) (Degree, error) {
	if l < 0 || int(l) >= len(degrees) {
		return Degree{}, fmt.Errorf("%w: %d", ErrUnknownEducation, l)
	}
	return degrees[l], nil
}

// Enrollment - текущее обучение
type Enrollment struct {
	Target      EducationLevel `json:"target"`
	StartedAt   time.Time      `json:"started_at"`
	CompletesAt time.Time      `json:"completes_at"`
}

// Education - состояние образования игрока
type Education struct {
	Level    EducationLevel `json:"level"`
	Enrolled *Enrollment    `json:"enrolled,omitempty"`
}

func (e Education) Clone() Education {
	if e.Enrolled != nil {
		en := *e.Enrolled
		e.Enrolled = &en
	}
	return e
}

// Enroll начинает следующую ступень и возвращает ее стоимость.
func (e *Education) Enroll(target EducationLevel, now time.Time) (float64, error) {
	d, err := LookupDegree(target)
	if err != nil {
		return 0, err
	}
	if e.Enrolled != nil {
		return 0, ErrAlreadyEnrolled
	}
	if target != e.Level+1 {
		return 0, fmt.Errorf("%w: current %d, requested %d", ErrEducationOrder, e.Level, target)
	}
	e.Enrolled = &Enrollment{Target: target, StartedAt: now, CompletesAt: now.AddDate(0, 0, d.StudyDays)}
	return d.Cost, nil
}

// Progress завершает обучение, если срок прошел. true - ступень получена.
func (e *Education) Progress(now time.Time) bool {
	if e.Enrolled == nil || now.Before(e.Enrolled.CompletesAt) {
		return false
	}
	e.Level = e.Enrolled.Target
	e.Enrolled = nil
	return true
}

// IncomeBonus текущей ступени
func (e Education) IncomeBonus() float64 {
	d, err := LookupDegree(e.Level)
	if err != nil {
		return 1
	}
	return d.IncomeBonus
}
