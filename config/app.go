package config

type App struct {
	Port              string `env:"APP_PORT" default:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	RedisURL          string `env:"REDIS_URL" default:"redis://localhost:6379/0"`
	JWTSecret         string `env:"JWT_SECRET,required"`
	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`
	SMTPHost          string `env:"SMTP_HOST"`
	SMTPPort          string `env:"SMTP_PORT" default:"465"`
	SMTPUser          string `env:"SMTP_USER"`
	SMTPPass          string `env:"SMTP_PASS"`
	NominatimEmail    string `env:"NOMINATIM_EMAIL"`
	Env               string `env:"APP_ENV" default:"dev"`
}
