package services

import (
	"strconv"
	"strings"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
)

// Supported notification locales
const (
	LocaleVietnamese = "vi"
	LocaleEnglish    = "en"
)

type notificationTemplate struct {
	Title   string
	Message string
}

// notificationTemplates is keyed by locale, then by notification type
var notificationTemplates = map[string]map[entities.NotificationType]notificationTemplate{
	LocaleVietnamese: {
		entities.NotificationBookingCreated: {
			Title:   "Đặt bàn mới",
			Message: "Bạn đã đặt bàn thành công tại nhà hàng {{restaurant_name}}",
		},
		entities.NotificationBookingConfirmed: {
			Title:   "Đặt bàn đã được xác nhận",
			Message: "Nhà hàng {{restaurant_name}} đã xác nhận đặt bàn của bạn.",
		},
		entities.NotificationBookingCanceled: {
			Title:   "Đặt bàn đã bị hủy",
			Message: "Đặt bàn tại {{restaurant_name}} đã bị hủy.",
		},
		entities.NotificationBookingInProgress: {
			Title:   "Bàn của bạn đã sẵn sàng",
			Message: "Chào mừng {{customer_name}} đến với {{restaurant_name}}. Chúc bạn ngon miệng!",
		},
		entities.NotificationBookingCompleted: {
			Title:   "Cảm ơn bạn đã ghé thăm",
			Message: "Cảm ơn bạn đã dùng bữa tại {{restaurant_name}}. Hẹn gặp lại!",
		},
		entities.NotificationBookingReminder: {
			Title:   "Nhắc lịch đặt bàn",
			Message: "Bạn có lịch đặt bàn cho {{number_of_guests}} người tại {{restaurant_name}} lúc {{booking_date}}.",
		},
	},
	LocaleEnglish: {
		entities.NotificationBookingCreated: {
			Title:   "New booking",
			Message: "Your table at {{restaurant_name}} has been booked",
		},
		entities.NotificationBookingConfirmed: {
			Title:   "Booking confirmed",
			Message: "{{restaurant_name}} has confirmed your booking.",
		},
		entities.NotificationBookingCanceled: {
			Title:   "Booking cancelled",
			Message: "Your booking at {{restaurant_name}} has been cancelled.",
		},
		entities.NotificationBookingInProgress: {
			Title:   "Your table is ready",
			Message: "Welcome to {{restaurant_name}}, {{customer_name}}. Enjoy your meal!",
		},
		entities.NotificationBookingCompleted: {
			Title:   "Thanks for visiting",
			Message: "Thank you for dining at {{restaurant_name}}. See you again!",
		},
		entities.NotificationBookingReminder: {
			Title:   "Booking reminder",
			Message: "You have a table for {{number_of_guests}} at {{restaurant_name}} on {{booking_date}}.",
		},
	},
}

// notificationContext holds the values substituted into a template
type notificationContext struct {
	RestaurantName string
	CustomerName   string
	BookingDate    string
	NumberOfGuests int
}

// SupportedLocale reports whether templates exist for locale
func SupportedLocale(locale string) bool {
	_, ok := notificationTemplates[locale]
	return ok
}

// lookupTemplate falls back to Vietnamese for unknown locales
func lookupTemplate(locale string, t entities.NotificationType) (notificationTemplate, bool) {
	templates, ok := notificationTemplates[locale]
	if !ok {
		templates = notificationTemplates[LocaleVietnamese]
	}
	tpl, ok := templates[t]
	return tpl, ok
}

// renderTemplate replaces placeholders in template
func renderTemplate(template string, ctx notificationContext) string {
	return strings.NewReplacer(
		"{{restaurant_name}}", ctx.RestaurantName,
		"{{customer_name}}", ctx.CustomerName,
		"{{booking_date}}", ctx.BookingDate,
		"{{number_of_guests}}", strconv.Itoa(ctx.NumberOfGuests),
	).Replace(template)
}
