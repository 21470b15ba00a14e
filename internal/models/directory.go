package models

import "gorm.io/datatypes"

type Person struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	Name     string         `json:"name"`
	Bio      string         `json:"bio"`
	URL      string         `json:"url"`
	Image    string         `json:"image"`
	Category string         `json:"category"`
	Tags     datatypes.JSON `gorm:"type:jsonb" json:"tags"`
	Contribution
}

func (Person) TableName() string   { return "people" }
func (*Person) Target() TargetType { return TargetPerson }

func (p *Person) EntryID() uint       { return p.ID }
func (p *Person) Meta() *Contribution { return &p.Contribution }

func (p *Person) Payload() Payload {
	return Payload{Name: p.Name, Bio: p.Bio, URL: p.URL, Image: p.Image, Category: p.Category, Tags: decodeTags(p.Tags)}
}

func (p *Person) Apply(in Payload) {
	pick(&p.Name, in.Name)
	pick(&p.Bio, in.Bio)
	pick(&p.URL, in.URL)
	pick(&p.Image, in.Image)
	pick(&p.Category, in.Category)
	if in.Tags != nil {
		p.Tags = encodeTags(in.Tags)
	}
}

func (p *Person) Columns() map[string]any {
	cols := map[string]any{}
	putString(cols, "name", p.Name)
	putString(cols, "bio", p.Bio)
	putString(cols, "url", p.URL)
	putString(cols, "image", p.Image)
	putString(cols, "category", p.Category)
	putTags(cols, p.Tags)
	return cols
}

func (p *Person) Missing() string {
	if p.Name == "" {
		return "name"
	}
	return ""
}

type Resource struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	Image       string         `json:"image"`
	Category    string         `json:"category"`
	Tags        datatypes.JSON `gorm:"type:jsonb" json:"tags"`
	Contribution
}

func (Resource) TableName() string   { return "resources" }
func (*Resource) Target() TargetType { return TargetResource }

func (r *Resource) EntryID() uint       { return r.ID }
func (r *Resource) Meta() *Contribution { return &r.Contribution }

func (r *Resource) Payload() Payload {
	return Payload{Title: r.Title, Description: r.Description, URL: r.URL, Image: r.Image, Category: r.Category, Tags: decodeTags(r.Tags)}
}

func (r *Resource) Apply(in Payload) {
	pick(&r.Title, in.Title)
	pick(&r.Description, in.Description)
	pick(&r.URL, in.URL)
	pick(&r.Image, in.Image)
	pick(&r.Category, in.Category)
	if in.Tags != nil {
		r.Tags = encodeTags(in.Tags)
	}
}

func (r *Resource) Columns() map[string]any {
	cols := map[string]any{}
	putString(cols, "title", r.Title)
	putString(cols, "description", r.Description)
	putString(cols, "url", r.URL)
	putString(cols, "image", r.Image)
	putString(cols, "category", r.Category)
	putTags(cols, r.Tags)
	return cols
}

func (r *Resource) Missing() string {
	switch {
	case r.Title == "":
		return "title"
	case r.URL == "":
		return "url"
	}
	return ""
}

type App struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	Image       string         `json:"image"`
	Platform    string         `json:"platform"`
	Tags        datatypes.JSON `gorm:"type:jsonb" json:"tags"`
	Contribution
}

func (App) TableName() string   { return "apps" }
func (*App) Target() TargetType { return TargetApp }

func (a *App) EntryID() uint       { return a.ID }
func (a *App) Meta() *Contribution { return &a.Contribution }

func (a *App) Payload() Payload {
	return Payload{Name: a.Name, Description: a.Description, URL: a.URL, Image: a.Image, Platform: a.Platform, Tags: decodeTags(a.Tags)}
}

func (a *App) Apply(in Payload) {
	pick(&a.Name, in.Name)
	pick(&a.Description, in.Description)
	pick(&a.URL, in.URL)
	pick(&a.Image, in.Image)
	pick(&a.Platform, in.Platform)
	if in.Tags != nil {
		a.Tags = encodeTags(in.Tags)
	}
}

func (a *App) Columns() map[string]any {
	cols := map[string]any{}
	putString(cols, "name", a.Name)
	putString(cols, "description", a.Description)
	putString(cols, "url", a.URL)
	putString(cols, "image", a.Image)
	putString(cols, "platform", a.Platform)
	putTags(cols, a.Tags)
	return cols
}

func (a *App) Missing() string {
	if a.Name == "" {
		return "name"
	}
	return ""
}
