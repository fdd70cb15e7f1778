package core

import "time"

// Instruments offered on the student registration form, by value.
var Instruments = []string{
	"violin", "viola", "cello", "bass",
	"flute", "clarinet", "oboe", "bassoon",
	"trumpet", "trombone", "french-horn", "tuba",
	"percussion", "piano",
}

func KnownInstrument(v string) bool {
	for _, i := range Instruments {
		if i == v {
			return true
		}
	}
	return false
}

type Class struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Instrument      string `json:"instrument"`
	Level           Level  `json:"level"`
	TeacherID       string `json:"teacherId"`
	Schedule        string `json:"schedule"`
	MaxStudents     int    `json:"maxStudents"`
	CurrentStudents int    `json:"currentStudents"`
	IsOnline        bool   `json:"isOnline"`
}

// Full reports whether the class has no seat left.
func (c Class) Full() bool {
	return c.CurrentStudents >= c.MaxStudents
}

type LibraryItemType string

const (
	LibraryBook     LibraryItemType = "book"
	LibrarySheet    LibraryItemType = "sheet"
	LibraryComposer LibraryItemType = "composer"
	LibraryMethod   LibraryItemType = "method"
)

type LibraryItem struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Type        LibraryItemType `json:"type"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	FileURL     string          `json:"fileUrl,omitempty"`
	Tags        []string        `json:"tags"`
}

type ProductType string

const (
	ProductEbook       ProductType = "ebook"
	ProductMethod      ProductType = "method"
	ProductMerchandise ProductType = "merchandise"
	ProductOther       ProductType = "other"
)

type Product struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	ImageURL    string      `json:"imageUrl"`
	Type        ProductType `json:"type"`
	InStock     bool        `json:"inStock"`
}

type SponsorTier string

const (
	TierBronze   SponsorTier = "bronze"
	TierSilver   SponsorTier = "silver"
	TierGold     SponsorTier = "gold"
	TierPlatinum SponsorTier = "platinum"
)

type Sponsor struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	LogoURL     string      `json:"logoUrl"`
	WebsiteURL  string      `json:"websiteUrl"`
	Tier        SponsorTier `json:"tier"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
}

// LevelAll is only meaningful for live sessions.
const LevelAll Level = "all"

type LiveSession struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	TeacherID    string    `json:"teacherId"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Duration     int       `json:"duration"` // minutes
	Instrument   string    `json:"instrument"`
	Level        Level     `json:"level"`
	MeetingURL   string    `json:"meetingUrl,omitempty"`
}

type Attendance struct {
	ID        string `json:"id"`
	ClassID   string `json:"classId"`
	StudentID string `json:"studentId"`
	Date      string `json:"date"`
	Present   bool   `json:"present"`
	Note      string `json:"note,omitempty"`
}
