package mailer

import (
	"bytes"
	"html/template"
)

const brandName = "ثلوثية الأعمال"

const layout = `{{define "layout"}}<!DOCTYPE html>
<html lang="ar" dir="rtl">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>` + brandName + `</title>
</head>
<body style="margin:0;padding:0;background-color:#F3F4F6;font-family:Tahoma,Arial,sans-serif;">
  <table role="presentation" width="100%" border="0" cellpadding="0" cellspacing="0">
    <tr>
      <td align="center" style="padding:32px 16px;">
        <table role="presentation" width="600" border="0" cellpadding="0" cellspacing="0" style="max-width:600px;background-color:#ffffff;border-radius:12px;">
          <tr>
            <td style="padding:24px 32px;background-color:#8B5CF6;border-radius:12px 12px 0 0;color:#ffffff;font-size:20px;font-weight:bold;">` + brandName + `</td>
          </tr>
          <tr>
            <td style="padding:32px;color:#1F2937;font-size:15px;line-height:1.7;">
              {{template "content" .}}
              {{if .ButtonURL}}
              <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="margin:24px auto 8px auto;">
                <tr>
                  <td align="center" style="background-color:#8B5CF6;border-radius:8px;">
                    <a href="{{.ButtonURL}}" target="_blank" style="display:inline-block;padding:14px 32px;font-size:16px;font-weight:bold;color:#ffffff;text-decoration:none;">{{.ButtonText}}</a>
                  </td>
                </tr>
              </table>
              {{end}}
              {{if .WithQR}}
              <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="margin:24px auto;text-align:center;" align="center">
                <tr>
                  <td align="center" style="padding:20px;background-color:#F9FAFB;border-radius:12px;">
                    <p style="margin:0 0 12px 0;font-weight:bold;">رمز الحضور الخاص بك:</p>
                    <img src="cid:qrcode" alt="QR Code" style="max-width:180px;height:auto;display:block;margin:0 auto;">
                    <p style="margin:12px 0 0 0;font-size:13px;color:#6B7280;">أظهر هذا الرمز عند الحضور</p>
                  </td>
                </tr>
              </table>
              {{end}}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>{{end}}

{{define "session"}}
<p style="margin:0 0 8px 0;"><strong style="font-size:18px;">{{.Session.Title}}</strong></p>
<p style="margin:0 0 16px 0;color:#6B7280;">التجمع رقم {{.Session.Number}}</p>
<table role="presentation" border="0" cellpadding="0" cellspacing="0" style="margin:16px 0;background-color:#F9FAFB;border-radius:8px;width:100%;">
  <tr>
    <td style="padding:16px;">
      <p style="margin:0 0 8px 0;"><strong>التاريخ:</strong> {{.Session.Date}}</p>
      <p style="margin:0;"><strong>المكان:</strong> {{.Session.Location}}</p>
    </td>
  </tr>
</table>
{{end}}

{{define "pendingNote"}}
<p style="margin:16px 0 0 0;padding:12px 16px;background-color:#FEF3C7;border-radius:8px;color:#92400E;">تسجيلك قيد المراجعة وسيتم إخطارك بالموافقة قريباً.</p>
{{end}}`

var bodies = map[string]string{
	"confirmed": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>,</p>
<p style="margin:0 0 16px 0;">تم تأكيد تسجيلك في:</p>
{{template "session" .}}
<p style="margin:16px 0 0 0;">نتطلع لرؤيتك معنا!</p>`,

	"pending": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>,</p>
<p style="margin:0 0 16px 0;">شكراً لتسجيلك في:</p>
{{template "session" .}}
{{template "pendingNote"}}`,

	"companion": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>,</p>
<p style="margin:0 0 16px 0;">تم تسجيلك كمرافق للأستاذ/ة <strong>{{.Registrant}}</strong> في:</p>
{{template "session" .}}
{{if .Approved}}<p style="margin:16px 0 0 0;">نتطلع لرؤيتك معنا!</p>{{else}}{{template "pendingNote"}}{{end}}`,

	"welcome": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>,</p>
<p style="margin:0 0 16px 0;">أهلاً بك في <strong>` + brandName + `</strong>!</p>
<p style="margin:0 0 12px 0;">تم إنشاء حسابك بنجاح. يمكنك الآن:</p>
<ul style="margin:0 0 16px 0;padding-right:20px;color:#4B5563;">
  <li style="margin-bottom:8px;">التسجيل في الجلسات القادمة</li>
  <li style="margin-bottom:8px;">متابعة حالة تسجيلاتك</li>
  <li>استعراض سجل حضورك</li>
</ul>`,

	"passwordReset": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>,</p>
<p style="margin:0 0 16px 0;">لقد طلبت إعادة تعيين كلمة المرور الخاصة بك.</p>
<p style="margin:0 0 16px 0;">اضغط على الزر أدناه لإعادة تعيين كلمة المرور:</p>
<p style="margin:24px 0;padding:12px 16px;background-color:#FEF3C7;border-radius:8px;color:#92400E;font-size:14px;">هذا الرابط صالح لمدة ساعة واحدة فقط.</p>
<p style="margin:16px 0 0 0;color:#6B7280;font-size:14px;">إذا لم تطلب إعادة تعيين كلمة المرور، يمكنك تجاهل هذه الرسالة.</p>`,

	"invitation": `
{{if .Custom}}{{range .Custom}}<p style="margin:0 0 12px 0;">{{.}}</p>{{end}}{{else}}
<p style="margin:0 0 16px 0;">مرحباً،</p>
<p style="margin:0 0 16px 0;">نود دعوتك لحضور جلسة <strong>"{{.Session.Title}}"</strong> في ` + brandName + `.</p>
{{template "session" .}}
<p style="margin:0 0 16px 0;padding:12px 16px;background-color:#EDE9FE;border-radius:8px;color:#5B21B6;">هذه دعوة خاصة. استخدم الزر أدناه للتسجيل.</p>{{end}}`,

	"valetParked": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>,</p>
<p style="margin:0 0 16px 0;">تم ركن سيارتك بنجاح في <strong>{{.EventName}}</strong>.</p>
<table role="presentation" border="0" cellpadding="0" cellspacing="0" style="margin:16px 0;background-color:#F9FAFB;border-radius:8px;width:100%;">
  <tr>
    <td style="padding:16px;">
      {{if .VehicleInfo}}<p style="margin:0 0 8px 0;"><strong>السيارة:</strong> {{.VehicleInfo}}</p>{{end}}
      {{if .TicketNumber}}<p style="margin:0 0 8px 0;"><strong>رقم التذكرة:</strong> {{.TicketNumber}}</p>{{end}}
      <p style="margin:0;"><strong>الموقف:</strong> {{.ParkingSlot}}</p>
    </td>
  </tr>
</table>
<p style="margin:0;">يمكنك طلب سيارتك في أي وقت من الرابط أدناه.</p>`,

	"valetReady": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>,</p>
<p style="margin:0 0 16px 0;">سيارتك جاهزة للاستلام عند مدخل <strong>{{.EventName}}</strong>.</p>
{{if .VehicleInfo}}<p style="margin:0;"><strong>السيارة:</strong> {{.VehicleInfo}}</p>{{end}}`,

	"valetBroadcast": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>,</p>
<p style="margin:0 0 8px 0;">رسالة من فريق الفاليه في <strong>{{.EventName}}</strong>:</p>
{{range .Custom}}<p style="margin:0 0 12px 0;">{{.}}</p>{{end}}`,

	"galleryShare": `
<p style="margin:0 0 16px 0;">مرحباً <strong>{{.Name}}</strong>،</p>
<p style="margin:0 0 16px 0;">يسعدنا مشاركة صورك من <strong>{{.EventName}}</strong>!</p>
<p style="margin:0;">شاهد وحمّل صورك من الرابط أدناه.</p>`,
}

var templates = func() map[string]*template.Template {
	base := template.Must(template.New("base").Parse(layout))
	out := make(map[string]*template.Template, len(bodies))
	for name, body := range bodies {
		t := template.Must(base.Clone())
		template.Must(t.New("content").Parse(body))
		out[name] = t
	}
	return out
}()

// sessionView is the session block shared by registration emails.
type sessionView struct {
	Title    string
	Number   int
	Date     string
	Location string
}

type view struct {
	Name         string
	Registrant   string
	Approved     bool
	EventName    string
	VehicleInfo  string
	ParkingSlot  string
	TicketNumber int
	Custom       []string
	Session      sessionView
	ButtonText   string
	ButtonURL    string
	WithQR       bool
}

func render(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := templates[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
