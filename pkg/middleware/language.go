package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const LangKey = "lang"

// LanguageMiddleware 优先 ?lang=，其次 Accept-Language，匹配不到时使用第一个支持的语言
func LanguageMiddleware(supported ...language.Tag) gin.HandlerFunc {
	if len(supported) == 0 {
		supported = []language.Tag{language.English}
	}
	matcher := language.NewMatcher(supported)
	return func(c *gin.Context) {
		var prefs []language.Tag
		if q := c.Query("lang"); q != "" {
			if t, err := language.Parse(q); err == nil {
				prefs = append(prefs, t)
			}
		}
		if h := c.GetHeader("Accept-Language"); h != "" {
			if tags, _, err := language.ParseAcceptLanguage(h); err == nil {
				prefs = append(prefs, tags...)
			}
		}
		_, idx, conf := matcher.Match(prefs...)
		tag := supported[0]
		if conf != language.No {
			tag = supported[idx]
		}
		c.Set(LangKey, tag.String())
		c.Next()
	}
}

// Lang 取当前请求语言
func Lang(c *gin.Context) string {
	if v, ok := c.Get(LangKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return language.English.String()
}
