package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	DefaultAccentColor   = "#d4a574"
	DefaultHeroVideoType = VideoYouTube
)

// Video sources understood by the site.
const (
	VideoYouTube     = "youtube"
	VideoGoogleDrive = "googledrive"
	VideoSupabase    = "supabase"
)

// Settings is the single site-wide configuration row. It is created out of
// band and only ever updated.
type Settings struct {
	ID RowID `json:"id" gorm:"column:id;primaryKey"`

	SiteName        string `json:"site_name" gorm:"column:site_name"`
	Tagline         string `json:"tagline" gorm:"column:tagline"`
	ContactEmail    string `json:"contact_email" gorm:"column:contact_email"`
	FormEndpoint    string `json:"form_endpoint" gorm:"column:form_endpoint"`
	SocialInstagram string `json:"social_instagram" gorm:"column:social_instagram"`
	SocialLinkedIn  string `json:"social_linkedin" gorm:"column:social_linkedin"`
	SocialVimeo     string `json:"social_vimeo" gorm:"column:social_vimeo"`
	FooterHeading   string `json:"footer_heading" gorm:"column:footer_heading"`
	FooterCopyright string `json:"footer_copyright" gorm:"column:footer_copyright"`
	AccentColor     string `json:"accent_color" gorm:"column:accent_color"`

	HeroVideoType   string `json:"hero_video_type" gorm:"column:hero_video_type"`
	HeroVideoID     string `json:"hero_video_id" gorm:"column:hero_video_id"`
	HeroVideoMobile string `json:"hero_video_mobile" gorm:"column:hero_video_mobile"`
	HeroPosterURL   string `json:"hero_poster_url" gorm:"column:hero_poster_url"`

	AboutHeading     string `json:"about_heading" gorm:"column:about_heading"`
	AboutBio         string `json:"about_bio" gorm:"column:about_bio"`
	AboutPortraitURL string `json:"about_portrait_url" gorm:"column:about_portrait_url"`

	WorkPageHeading       string `json:"work_page_heading" gorm:"column:work_page_heading"`
	WorkPageSubheading    string `json:"work_page_subheading" gorm:"column:work_page_subheading"`
	ContactPageHeading    string `json:"contact_page_heading" gorm:"column:contact_page_heading"`
	ContactPageSubheading string `json:"contact_page_subheading" gorm:"column:contact_page_subheading"`

	FeaturedProjectIDs pq.StringArray `json:"featured_project_ids" gorm:"column:featured_project_ids;type:text[]"`

	UpdatedAt *time.Time `json:"updated_at,omitempty" gorm:"column:updated_at"`
}

func (Settings) TableName() string {
	return "site_settings"
}

// WithDefaults returns a copy with every unset field that has a site default
// filled in. Readers call this instead of falling back field by field.
func (s Settings) WithDefaults() Settings {
	out := s.Clone()
	if out.AccentColor == "" {
		out.AccentColor = DefaultAccentColor
	}
	if out.HeroVideoType == "" {
		out.HeroVideoType = DefaultHeroVideoType
	}
	return out
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	if s.FeaturedProjectIDs != nil {
		out.FeaturedProjectIDs = append(pq.StringArray(nil), s.FeaturedProjectIDs...)
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// SettingsPatch is a partial settings update. Nil fields are left alone.
type SettingsPatch struct {
	SiteName        *string `json:"site_name,omitempty"`
	Tagline         *string `json:"tagline,omitempty"`
	ContactEmail    *string `json:"contact_email,omitempty"`
	FormEndpoint    *string `json:"form_endpoint,omitempty"`
	SocialInstagram *string `json:"social_instagram,omitempty"`
	SocialLinkedIn  *string `json:"social_linkedin,omitempty"`
	SocialVimeo     *string `json:"social_vimeo,omitempty"`
	FooterHeading   *string `json:"footer_heading,omitempty"`
	FooterCopyright *string `json:"footer_copyright,omitempty"`
	AccentColor     *string `json:"accent_color,omitempty"`

	HeroVideoType   *string `json:"hero_video_type,omitempty"`
	HeroVideoID     *string `json:"hero_video_id,omitempty"`
	HeroVideoMobile *string `json:"hero_video_mobile,omitempty"`
	HeroPosterURL   *string `json:"hero_poster_url,omitempty"`

	AboutHeading     *string `json:"about_heading,omitempty"`
	AboutBio         *string `json:"about_bio,omitempty"`
	AboutPortraitURL *string `json:"about_portrait_url,omitempty"`

	WorkPageHeading       *string `json:"work_page_heading,omitempty"`
	WorkPageSubheading    *string `json:"work_page_subheading,omitempty"`
	ContactPageHeading    *string `json:"contact_page_heading,omitempty"`
	ContactPageSubheading *string `json:"contact_page_subheading,omitempty"`

	FeaturedProjectIDs *[]string `json:"featured_project_ids,omitempty"`

	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (p SettingsPatch) stringFields(s *Settings) []stringField {
	return []stringField{
		{"site_name", p.SiteName, &s.SiteName},
		{"tagline", p.Tagline, &s.Tagline},
		{"contact_email", p.ContactEmail, &s.ContactEmail},
		{"form_endpoint", p.FormEndpoint, &s.FormEndpoint},
		{"social_instagram", p.SocialInstagram, &s.SocialInstagram},
		{"social_linkedin", p.SocialLinkedIn, &s.SocialLinkedIn},
		{"social_vimeo", p.SocialVimeo, &s.SocialVimeo},
		{"footer_heading", p.FooterHeading, &s.FooterHeading},
		{"footer_copyright", p.FooterCopyright, &s.FooterCopyright},
		{"accent_color", p.AccentColor, &s.AccentColor},
		{"hero_video_type", p.HeroVideoType, &s.HeroVideoType},
		{"hero_video_id", p.HeroVideoID, &s.HeroVideoID},
		{"hero_video_mobile", p.HeroVideoMobile, &s.HeroVideoMobile},
		{"hero_poster_url", p.HeroPosterURL, &s.HeroPosterURL},
		{"about_heading", p.AboutHeading, &s.AboutHeading},
		{"about_bio", p.AboutBio, &s.AboutBio},
		{"about_portrait_url", p.AboutPortraitURL, &s.AboutPortraitURL},
		{"work_page_heading", p.WorkPageHeading, &s.WorkPageHeading},
		{"work_page_subheading", p.WorkPageSubheading, &s.WorkPageSubheading},
		{"contact_page_heading", p.ContactPageHeading, &s.ContactPageHeading},
		{"contact_page_subheading", p.ContactPageSubheading, &s.ContactPageSubheading},
	}
}

// IsEmpty reports whether the patch changes nothing besides the timestamp.
func (p SettingsPatch) IsEmpty() bool {
	var scratch Settings
	for _, f := range p.stringFields(&scratch) {
		if f.src != nil {
			return false
		}
	}
	return p.FeaturedProjectIDs == nil
}

// ApplyTo merges the patch into a copy of s.
func (p SettingsPatch) ApplyTo(s Settings) Settings {
	out := s.Clone()
	for _, f := range p.stringFields(&out) {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if p.FeaturedProjectIDs != nil {
		out.FeaturedProjectIDs = append(pq.StringArray{}, (*p.FeaturedProjectIDs)...)
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// Columns returns the changed columns keyed by column name.
func (p SettingsPatch) Columns() map[string]any {
	var scratch Settings
	cols := make(map[string]any)
	for _, f := range p.stringFields(&scratch) {
		if f.src != nil {
			cols[f.column] = *f.src
		}
	}
	if p.FeaturedProjectIDs != nil {
		cols["featured_project_ids"] = pq.StringArray(*p.FeaturedProjectIDs)
	}
	if p.UpdatedAt != nil {
		cols["updated_at"] = *p.UpdatedAt
	}
	return cols
}

type stringField struct {
	column string
	src    *string
	dst    *string
}
