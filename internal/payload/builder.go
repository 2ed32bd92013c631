package payload

import (
	"fmt"
	"strings"

	"MarketBridge/internal/config"
)

// Template names accepted by the Naver product-creation schema.
const (
	TemplateFashion = "FASHION_ITEMS"
	TemplateLiving  = "LIVING"
	TemplateDigital = "DIGITAL_CONTENTS"
)

var noticeKeys = map[string]string{
	TemplateFashion: "fashionItems",
	TemplateLiving:  "living",
	TemplateDigital: "digitalContents",
}

var (
	digitalHits = []string{"이어폰", "헤드셋", "케이블", "충전기", "모니터", "키보드", "마우스", "전자", "digital"}
	livingHits  = []string{"컵", "접시", "냄비", "수납", "침구", "생활", "주방", "욕실", "living"}
	fashionHits = []string{"티셔츠", "바지", "원피스", "가방", "신발", "패션", "의류", "fashion"}
)

// Builder assembles Naver product-creation payloads from configured defaults.
type Builder struct {
	cfg config.PayloadConfig
}

// NewBuilder wires payload defaults from configuration.
func NewBuilder(cfg config.PayloadConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build produces the payload tree for a title and sale price, merges caller
// overrides on top, and reports required-field violations. It never fails;
// problems come back as validation error strings.
func (b *Builder) Build(title string, salePriceKRW int, overrides *Value, templateHint string) (*Value, []string, string) {
	template := b.resolveTemplate(title, templateHint)
	built := b.basePayload(title, salePriceKRW, template)
	if overrides != nil {
		built = built.Merge(overrides)
	}
	return built, b.validateRequired(built, template), template
}

func (b *Builder) resolveTemplate(title, templateHint string) string {
	if hint := strings.ToUpper(strings.TrimSpace(templateHint)); hint != "" {
		if _, known := noticeKeys[hint]; known {
			return hint
		}
	}

	if mode := strings.ToLower(strings.TrimSpace(b.cfg.TemplateMode)); mode != "auto" {
		fixed := strings.ToUpper(mode)
		if _, known := noticeKeys[fixed]; known {
			return fixed
		}
	}

	return b.inferTemplateByTitle(title)
}

func (b *Builder) inferTemplateByTitle(title string) string {
	lowered := strings.ToLower(title)

	if containsAny(lowered, digitalHits) {
		return TemplateDigital
	}
	if containsAny(lowered, livingHits) {
		return TemplateLiving
	}
	if containsAny(lowered, fashionHits) {
		return TemplateFashion
	}

	if fallback := strings.ToUpper(strings.TrimSpace(b.cfg.DefaultNoticeType)); fallback != "" {
		return fallback
	}
	return TemplateFashion
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func (b *Builder) basePayload(title string, salePriceKRW int, template string) *Value {
	images := Array()
	if rep := b.cfg.RepresentativeImageURL; rep != "" {
		images.Append(Object().Set("url", String(rep)))
	}
	for _, u := range b.cfg.OptionalImages() {
		images.Append(Object().Set("url", String(u)))
	}

	noticeKey, ok := noticeKeys[template]
	if !ok {
		noticeKey = "fashionItems"
	}

	notice := Object().
		Set("productInfoProvidedNoticeType", String(template)).
		Set(noticeKey, b.noticeBlock(template))

	detailAttribute := Object().
		Set("afterServiceInfo", Object().
			Set("afterServiceGuideContent", String(b.cfg.AfterServiceGuide)).
			Set("afterServiceTelephoneNumber", String(b.cfg.AfterServiceTel))).
		Set("originAreaInfo", Object().
			Set("originAreaCode", String(b.cfg.OriginAreaCode)).
			Set("importer", String(b.cfg.Importer))).
		Set("productInfoProvidedNotice", notice)

	originProduct := Object().
		Set("statusType", String("SALE")).
		Set("leafCategoryId", Int(b.cfg.LeafCategoryID)).
		Set("name", String(truncate(title, 100))).
		Set("detailContent", String(b.cfg.DetailContentHTML)).
		Set("images", images).
		Set("salePrice", Int(salePriceKRW)).
		Set("stockQuantity", Int(99)).
		Set("detailAttribute", detailAttribute)

	channelProduct := Object().
		Set("channelProductDisplayStatusType", String("ON")).
		Set("naverShoppingRegistration", Object().
			Set("modelName", String("상품 상세 참조")).
			Set("brand", String("기타")).
			Set("manufacturerName", String("기타")).
			Set("representativeKeyword", String("기타")))

	return Object().
		Set("originProduct", originProduct).
		Set("smartstoreChannelProduct", channelProduct)
}

func (b *Builder) noticeBlock(template string) *Value {
	block := Object().
		Set("returnCostReason", String("상품 상세 참조")).
		Set("noRefundReason", String("상품 상세 참조")).
		Set("qualityAssuranceStandard", String("관련 법 및 소비자 분쟁해결 기준 따름")).
		Set("compensationProcedure", String("상품 상세 참조")).
		Set("troubleShootingContents", String("상품 상세 참조"))

	switch template {
	case TemplateDigital:
		block.
			Set("productName", String("상품 상세 참조")).
			Set("modelName", String("상품 상세 참조")).
			Set("certificationInfo", String("해당없음/상품 상세 참조")).
			Set("manufacturer", String("상품 상세 참조")).
			Set("countryOfOrigin", String("상품 상세 참조")).
			Set("customerServiceNumber", String("상품 상세 참조"))
	case TemplateLiving:
		block.
			Set("item", String("상품 상세 참조")).
			Set("modelName", String("상품 상세 참조")).
			Set("certificationInfo", String("해당없음/상품 상세 참조")).
			Set("manufacturer", String("상품 상세 참조")).
			Set("countryOfOrigin", String("상품 상세 참조")).
			Set("customerServiceNumber", String("상품 상세 참조"))
	default:
		block.
			Set("item", String("상품 상세 참조")).
			Set("material", String("상품 상세 참조")).
			Set("color", String("상품 상세 참조")).
			Set("size", String("상품 상세 참조")).
			Set("manufacturer", String("상품 상세 참조")).
			Set("caution", String("상품 상세 참조")).
			Set("warrantyPolicy", String("상품 상세 참조")).
			Set("afterServiceDirector", String("상품 상세 참조"))
	}
	return block
}

func (b *Builder) validateRequired(built *Value, template string) []string {
	noticeKey, ok := noticeKeys[template]
	if !ok {
		noticeKey = "fashionItems"
	}

	requiredPaths := []string{
		"originProduct.statusType",
		"originProduct.leafCategoryId",
		"originProduct.name",
		"originProduct.detailContent",
		"originProduct.images",
		"originProduct.salePrice",
		"originProduct.stockQuantity",
		"originProduct.detailAttribute.afterServiceInfo.afterServiceGuideContent",
		"originProduct.detailAttribute.afterServiceInfo.afterServiceTelephoneNumber",
		"originProduct.detailAttribute.productInfoProvidedNotice.productInfoProvidedNoticeType",
		"originProduct.detailAttribute.productInfoProvidedNotice." + noticeKey,
		"smartstoreChannelProduct.channelProductDisplayStatusType",
		"smartstoreChannelProduct.naverShoppingRegistration",
	}

	var errs []string
	for _, path := range requiredPaths {
		node, found := built.Path(path)
		if !found || node.Kind() == KindNull {
			errs = append(errs, fmt.Sprintf("필수값 누락: %s", path))
			continue
		}
		if node.Kind() == KindString && strings.TrimSpace(node.Str()) == "" {
			errs = append(errs, fmt.Sprintf("필수값 비어있음: %s", path))
		}
		if node.Kind() == KindArray && node.Len() == 0 {
			errs = append(errs, fmt.Sprintf("필수값 비어있음: %s", path))
		}
	}

	if rep, found := built.Path("originProduct.images.0.url"); !found || rep.Str() == "" {
		errs = append(errs, "필수값 누락: originProduct.images[0].url (대표이미지 URL)")
	}
	return errs
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
