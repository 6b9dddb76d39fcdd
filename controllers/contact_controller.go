package controllers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/middleware"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

const msgContactInvalid = "Please check your form. There are errors."

type contactForm struct {
	Name    string `form:"name" binding:"required,max=100"`
	Email   string `form:"email" binding:"required,email"`
	Subject string `form:"subject" binding:"required,max=200"`
	Message string `form:"message" binding:"required"`
}

// ContactController renders and processes the public contact form.
type ContactController struct {
	db     *gorm.DB
	notify func(models.ContactMessage)
}

// NewContactController creates a new ContactController instance.
func NewContactController(db *gorm.DB) *ContactController {
	return &ContactController{db: db, notify: notifyStaffOfContact}
}

// ShowForm renders an empty contact form.
func (c *ContactController) ShowForm(ctx *gin.Context) {
	c.renderForm(ctx, http.StatusOK, contactForm{}, map[string]string{})
}

// Submit validates the form, stores the message and redirects back to a fresh form.
func (c *ContactController) Submit(ctx *gin.Context) {
	form := contactForm{
		Name:    trimmed(ctx, "name"),
		Email:   trimmed(ctx, "email"),
		Subject: trimmed(ctx, "subject"),
		Message: trimmed(ctx, "message"),
	}

	errs := validationErrors(binding.Validator.ValidateStruct(&form))
	if config.Get().Contact.CaptchaEnabled {
		if !utils.VerifyCaptcha(trimmed(ctx, "captcha_id"), trimmed(ctx, "captcha_answer")) {
			errs["captcha"] = "Incorrect captcha, please try again."
		}
	}
	if len(errs) > 0 {
		middleware.AddFlash(ctx, middleware.FlashError, msgContactInvalid)
		c.renderForm(ctx, http.StatusBadRequest, form, errs)
		return
	}

	msg := models.ContactMessage{
		Name:    utils.SanitizeText(form.Name),
		Email:   form.Email,
		Subject: utils.SanitizeText(form.Subject),
		Message: utils.SanitizeText(form.Message),
	}
	if err := models.CreateContactMessage(c.db, &msg); err != nil {
		serverError(ctx, err, "failed to save contact message")
		return
	}
	utils.Sugar.Infow("contact message received", "id", msg.ID, "subject", msg.Subject)

	if c.notify != nil {
		go c.notify(msg)
	}

	redirectWithFlash(ctx, middleware.FlashSuccess,
		fmt.Sprintf("Thank you %s! Your message has been sent successfully. We will get back to you soon.", msg.Name),
		"/contact/")
}

func (c *ContactController) renderForm(ctx *gin.Context, status int, form contactForm, errs map[string]string) {
	data := gin.H{
		"title":  "Contact",
		"form":   form,
		"errors": errs,
	}
	if config.Get().Contact.CaptchaEnabled {
		id, img, err := utils.GenerateCaptcha()
		if err != nil {
			serverError(ctx, err, "failed to generate captcha")
			return
		}
		data["captcha_id"] = id
		// data: URLs are filtered by html/template unless marked safe
		data["captcha_image"] = template.URL(img)
	}
	render(ctx, status, "contact.html", data)
}

// validationErrors turns validator failures into one message per form field.
func validationErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		field := fieldName(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = "This field is required."
		case "email":
			out[field] = "Enter a valid email address."
		case "max":
			out[field] = fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		case "min":
			out[field] = fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		case "eqfield":
			out[field] = "The two password fields didn't match."
		default:
			out[field] = "Enter a valid value."
		}
	}
	return out
}

var formFieldNames = map[string]string{
	"Name":      "name",
	"Email":     "email",
	"Subject":   "subject",
	"Message":   "message",
	"Username":  "username",
	"Password1": "password1",
	"Password2": "password2",
}

func fieldName(structField string) string {
	if n, ok := formFieldNames[structField]; ok {
		return n
	}
	return structField
}

func notifyStaffOfContact(msg models.ContactMessage) {
	recipients := config.Get().Contact.NotifyEmails
	if len(recipients) == 0 || !utils.MailConfigured() {
		return
	}
	subject := fmt.Sprintf("[%s] New contact message: %s", config.Get().App.SiteName, msg.Subject)
	body := fmt.Sprintf("From: %s <%s>\nReceived: %s\n\n%s\n",
		msg.Name, msg.Email, msg.CreatedAt.Format("2006-01-02 15:04"), msg.Message)
	utils.NotifyStaff(recipients, subject, body)
}
