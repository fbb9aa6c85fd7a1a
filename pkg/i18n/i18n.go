package i18n

import (
	"EcoWatch/pkg/logger"
	"embed"
	"encoding/json"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// I18nSupport 国际化支持，语言文件随二进制一起打包
type I18nSupport struct {
	bundle *i18n.Bundle
	def    language.Tag
	tags   []language.Tag
}

func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		def = language.English
	}
	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	s := &I18nSupport{bundle: bundle, def: def}
	for _, e := range entries {
		p := path.Join("locales", e.Name())
		buf, err := localeFS.ReadFile(p)
		if err != nil {
			return nil, err
		}
		mf, err := bundle.ParseMessageFileBytes(buf, p)
		if err != nil {
			return nil, err
		}
		s.tags = append(s.tags, mf.Tag)
	}
	return s, nil
}

// Languages 已加载的语言，默认语言排在第一位，供语言协商中间件使用
func (i *I18nSupport) Languages() []language.Tag {
	out := []language.Tag{i.def}
	for _, t := range i.tags {
		if t != i.def {
			out = append(out, t)
		}
	}
	return out
}

// T 获取翻译文本，缺失时返回 key
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)
	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		logger.Debug("translate failed", zap.String("key", key), zap.String("lang", languageTag), zap.Error(err))
		return key
	}
	return translation
}

func (i *I18nSupport) TWithDefaultLang(key string, templateData map[string]interface{}) string {
	return i.T("", key, templateData)
}
