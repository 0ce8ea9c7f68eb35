package api

import "donorlink.org/internal/session"

// Wire envelopes for the donation backend. The backend wraps most
// payloads as { isSuccess, data } and login as { isSuccess, token,
// message }.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	IsSuccess bool   `json:"isSuccess"`
	Token     string `json:"token"`
	Message   string `json:"message"`
}

type refreshResponse struct {
	Token string       `json:"token"`
	User  *profileData `json:"user"`
}

type profileResponse struct {
	IsSuccess bool         `json:"isSuccess"`
	Data      *profileData `json:"data"`
	Message   string       `json:"message"`
}

type profileData struct {
	ID               string `json:"id"`
	FullName         string `json:"fullName"`
	Role             string `json:"role"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	BloodType        string `json:"bloodType"`
	DateOfBirth      string `json:"dateOfBirth"`
	Address          string `json:"address"`
	LastDonationDate string `json:"lastDonationDate"`
}

func (p *profileData) toUser() *session.User {
	if p == nil {
		return nil
	}
	return &session.User{
		ID:           p.ID,
		DisplayName:  p.FullName,
		Role:         session.ParseRole(p.Role),
		Email:        p.Email,
		Phone:        p.Phone,
		BloodType:    p.BloodType,
		DateOfBirth:  p.DateOfBirth,
		Address:      p.Address,
		LastDonation: p.LastDonationDate,
	}
}

// Donor is a public donor-search result row.
type Donor struct {
	ID          string `json:"id"`
	DisplayName string `json:"fullName"`
	BloodType   string `json:"bloodType"`
	City        string `json:"city"`
}

// Event is a donation drive listing.
type Event struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	StartsAt string `json:"startsAt"`
	Location string `json:"location"`
	Slots    int    `json:"slots"`
}

// BlogPost is an article managed by staff.
type BlogPost struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	PublishedAt string `json:"publishedAt"`
}

// Donation is one entry of a member's donation history.
type Donation struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	VolumeML int    `json:"volumeMl"`
	Location string `json:"location"`
}

type donorsResponse struct {
	IsSuccess bool    `json:"isSuccess"`
	Data      []Donor `json:"data"`
}

type eventsResponse struct {
	IsSuccess bool    `json:"isSuccess"`
	Data      []Event `json:"data"`
}

type blogsResponse struct {
	IsSuccess bool       `json:"isSuccess"`
	Data      []BlogPost `json:"data"`
}

type blogResponse struct {
	IsSuccess bool      `json:"isSuccess"`
	Data      *BlogPost `json:"data"`
}

type donationsResponse struct {
	IsSuccess bool       `json:"isSuccess"`
	Data      []Donation `json:"data"`
}
