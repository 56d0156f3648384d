package handler

import (
    "time"

    "github.com/iliyamo/recruitment-api/internal/model"
    "github.com/iliyamo/recruitment-api/internal/utils"
)

// Response DTOs.  Derived fields (salary_range, posted_date, reading_time,
// frontmatter) are computed when the response is built.

type accountDTO struct {
    ID          uint64    `json:"id"`
    Email       string    `json:"email"`
    FirstName   string    `json:"first_name"`
    LastName    string    `json:"last_name"`
    PhoneNumber string    `json:"phone_number"`
    Role        string    `json:"role"`
    IsStaff     bool      `json:"is_staff"`
    IsSuperuser bool      `json:"is_superuser"`
    IsActive    bool      `json:"is_active"`
    CreatedAt   time.Time `json:"created_at"`
}

func toAccount(a model.Account) accountDTO {
    return accountDTO{
        ID:          a.ID,
        Email:       a.Email,
        FirstName:   a.FirstName,
        LastName:    a.LastName,
        PhoneNumber: a.PhoneNumber,
        Role:        a.Role(),
        IsStaff:     a.IsStaff,
        IsSuperuser: a.IsSuperuser,
        IsActive:    a.IsActive,
        CreatedAt:   a.CreatedAt,
    }
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type authResp struct {
    User    accountDTO `json:"user"`
    Access  tokenPart  `json:"access"`
    Refresh tokenPart  `json:"refresh"`
}

func toAuth(a model.Account, access utils.AccessToken, refresh utils.RefreshToken) authResp {
    return authResp{
        User:    toAccount(a),
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    }
}

type listingDTO struct {
    ID           uint64        `json:"id"`
    Title        string        `json:"title"`
    Company      string        `json:"company"`
    Location     string        `json:"location"`
    JobType      model.JobType `json:"job_type"`
    SalaryMin    *float64      `json:"salary_min"`
    SalaryMax    *float64      `json:"salary_max"`
    SalaryRange  string        `json:"salary_range"`
    Description  string        `json:"description"`
    Requirements string        `json:"requirements"`
    IsActive     bool          `json:"is_active"`
    CreatedAt    time.Time     `json:"created_at"`
    PostedDate   string        `json:"posted_date"`
    HasApplied   bool          `json:"has_applied"`
    Slug         string        `json:"slug"`
}

func toListing(l model.Listing, now time.Time, applied bool) listingDTO {
    return listingDTO{
        ID:           l.ID,
        Title:        l.Title,
        Company:      l.Company,
        Location:     l.Location,
        JobType:      l.Category,
        SalaryMin:    l.SalaryMin,
        SalaryMax:    l.SalaryMax,
        SalaryRange:  l.SalaryRange(),
        Description:  l.Description,
        Requirements: l.Requirements,
        IsActive:     l.IsActive,
        CreatedAt:    l.CreatedAt,
        PostedDate:   l.PostedAge(now),
        HasApplied:   applied,
        Slug:         l.Slug,
    }
}

// applicationDTO omits the stored document handle; the resume is fetched
// through its own endpoint.
type applicationDTO struct {
    ID                uint64                  `json:"id"`
    Job               uint64                  `json:"job"`
    JobTitle          string                  `json:"job_title"`
    CompanyName       string                  `json:"company_name"`
    JobSlug           string                  `json:"job_slug"`
    Applicant         uint64                  `json:"applicant"`
    ApplicantName     string                  `json:"applicant_name,omitempty"`
    ApplicantEmail    string                  `json:"applicant_email,omitempty"`
    Resume            string                  `json:"resume"`
    CoverLetter       string                  `json:"cover_letter"`
    YearsOfExperience int                     `json:"years_of_experience"`
    LinkedInURL       string                  `json:"linkedin_url"`
    PortfolioURL      string                  `json:"portfolio_url"`
    Status            model.ApplicationStatus `json:"status"`
    AppliedAt         time.Time               `json:"applied_at"`
}

// resumePath is the API route that hands out the resume download link.
func resumePath(id uint64) string {
    return "/jobs/applications/" + utoa(id) + "/resume/"
}

func toApplication(a model.Application) applicationDTO {
    return applicationDTO{
        ID:                a.ID,
        Job:               a.ListingID,
        JobTitle:          a.ListingTitle,
        CompanyName:       a.ListingCompany,
        JobSlug:           a.ListingSlug,
        Applicant:         a.AccountID,
        ApplicantName:     a.ApplicantName,
        ApplicantEmail:    a.ApplicantEmail,
        Resume:            resumePath(a.ID),
        CoverLetter:       a.CoverLetter,
        YearsOfExperience: a.YearsOfExperience,
        LinkedInURL:       a.LinkedInURL,
        PortfolioURL:      a.PortfolioURL,
        Status:            a.Status,
        AppliedAt:         a.AppliedAt,
    }
}

func toApplications(in []model.Application) []applicationDTO {
    out := make([]applicationDTO, 0, len(in))
    for _, a := range in {
        out = append(out, toApplication(a))
    }
    return out
}

type authorDTO struct {
    ID     uint64  `json:"id"`
    Name   string  `json:"name"`
    Email  string  `json:"email"`
    Avatar *string `json:"avatar"`
    Bio    string  `json:"bio,omitempty"`
}

func optional(s string) *string {
    if s == "" {
        return nil
    }
    return &s
}

func toAuthor(a model.Author) authorDTO {
    return authorDTO{ID: a.ID, Name: a.Name, Email: a.Email, Avatar: optional(a.AvatarURL), Bio: a.Bio}
}

type termDTO struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
    Slug string `json:"slug"`
}

type frontmatterAuthor struct {
    Name   string  `json:"name"`
    Avatar *string `json:"avatar"`
}

type frontmatter struct {
    Title  string            `json:"title"`
    Image  *string           `json:"image"`
    Author frontmatterAuthor `json:"author"`
    Date   time.Time         `json:"date"`
    Draft  bool              `json:"draft"`
}

type postDTO struct {
    ID          uint64      `json:"id"`
    Title       string      `json:"title"`
    Slug        string      `json:"slug"`
    Description string      `json:"description"`
    Image       *string     `json:"image"`
    Author      authorDTO   `json:"author"`
    Categories  []termDTO   `json:"categories"`
    Date        time.Time   `json:"date"`
    Frontmatter frontmatter `json:"frontmatter"`
    ReadingTime int         `json:"reading_time"`
}

type postDetailDTO struct {
    postDTO
    Content string    `json:"content"`
    Tags    []termDTO `json:"tags"`
}

func categoryTerms(in []model.Category) []termDTO {
    out := make([]termDTO, 0, len(in))
    for _, t := range in {
        out = append(out, termDTO{ID: t.ID, Name: t.Name, Slug: t.Slug})
    }
    return out
}

func tagTerms(in []model.Tag) []termDTO {
    out := make([]termDTO, 0, len(in))
    for _, t := range in {
        out = append(out, termDTO{ID: t.ID, Name: t.Name, Slug: t.Slug})
    }
    return out
}

func toPost(p model.Post) postDTO {
    author := toAuthor(p.Author)
    author.Bio = ""
    return postDTO{
        ID:          p.ID,
        Title:       p.Title,
        Slug:        p.Slug,
        Description: p.Description,
        Image:       optional(p.ImageURL),
        Author:      author,
        Categories:  categoryTerms(p.Categories),
        Date:        p.Date,
        Frontmatter: frontmatter{
            Title:  p.Title,
            Image:  optional(p.ImageURL),
            Author: frontmatterAuthor{Name: p.Author.Name, Avatar: optional(p.Author.AvatarURL)},
            Date:   p.Date,
            Draft:  p.Draft,
        },
        ReadingTime: p.ReadingTime(),
    }
}

func toPostDetail(p model.Post) postDetailDTO {
    return postDetailDTO{postDTO: toPost(p), Content: p.Content, Tags: tagTerms(p.Tags)}
}

func toPosts(in []model.Post) []postDTO {
    out := make([]postDTO, 0, len(in))
    for _, p := range in {
        out = append(out, toPost(p))
    }
    return out
}
