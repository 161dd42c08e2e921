package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxResumeSize       int
	MaxArticleSize      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware validates the JSON API payloads before they reach the
// handlers. The Twilio webhook is form-encoded and validated in its own
// handler, so it is exempt here.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxResumeSize == 0 {
		cfg.MaxResumeSize = 512 * 1024
	}
	if cfg.MaxArticleSize == 0 {
		cfg.MaxArticleSize = 2 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "application/x-www-form-urlencoded"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/reviews") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			resumeText, _ := req["resume_text"].(string)
			resumeURL, _ := req["resume_url"].(string)
			if resumeText == "" && resumeURL == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "resume_text or resume_url is required",
				})
			}

			if len(resumeText) > cfg.MaxResumeSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Resume exceeds maximum size",
				})
			}

			if resumeURL != "" && !isValidURL(resumeURL) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid resume_url format",
				})
			}

			if jobURL, ok := req["job_url"].(string); ok && jobURL != "" && !isValidURL(jobURL) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid job_url format",
				})
			}

			if containsXSS(resumeText) {
				cfg.Logger.Warn("Potential XSS attempt",
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid resume content",
				})
			}
		}

		if strings.Contains(path, "/api/v1/newsletter/articles") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			content, ok := req["content"].(string)
			if !ok || content == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "content is required and must be a string",
				})
			}

			if len(content) > cfg.MaxArticleSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Article content exceeds maximum size",
				})
			}

			if sourceURL, ok := req["source_url"].(string); ok && sourceURL != "" && !isValidURL(sourceURL) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid source_url format",
				})
			}
		}

		return c.Next()
	}
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if u.Host == "" {
		return false
	}

	return true
}
