package usecase

import (
	"strconv"
	"strings"

	"creativelens/internal/domain"
)

// Report column headers as exported by the ads manager in Spanish.
const (
	ColAccountName   = "Nombre de la cuenta"
	ColCampaignName  = "Nombre de la campaña"
	ColAdSetName     = "Nombre del conjunto de anuncios"
	ColAdName        = "Nombre del anuncio"
	ColDay           = "Día"
	ColPresentation  = "Imagen, video y presentación"
	ColSpend         = "Importe gastado (EUR)"
	ColSpendPrefix   = "Importe gastado ("
	ColCurrency      = "Divisa"
	ColImpressions   = "Impresiones"
	ColClicksAll     = "Clics (todos)"
	ColPurchases     = "Compras"
	ColPurchaseValue = "Valor de conversión de compras"
	ColReportStart   = "Inicio del informe"
	ColReportEnd     = "Fin del informe"
)

// DateColumns hold calendar days; spreadsheet readers should render them as YYYY-MM-DD.
var DateColumns = []string{ColDay, ColReportStart, ColReportEnd}

const defaultCurrency = "EUR"

// MapRow converts one report row into a record owned by clientID.
func MapRow(row domain.RawRow, clientID string) domain.PerformanceRecord {
	rec := domain.PerformanceRecord{
		ClientID:               clientID,
		CampaignName:           row[ColCampaignName],
		AdSetName:              row[ColAdSetName],
		AdName:                 row[ColAdName],
		Day:                    row[ColDay],
		AccountName:            row[ColAccountName],
		ImageVideoPresentation: row[ColPresentation],

		Spend:         ParseDecimal(spendCell(row)),
		Impressions:   ParseWhole(row[ColImpressions]),
		ClicksAll:     ParseWhole(row[ColClicksAll]),
		Purchases:     ParseDecimal(row[ColPurchases]),
		PurchaseValue: ParseDecimal(row[ColPurchaseValue]),
		Currency:      row[ColCurrency],

		CampaignDelivery:            row["Entrega de la campaña"],
		AdSetDelivery:               row["Entrega del conjunto de anuncios"],
		AdDelivery:                  row["Entrega del anuncio"],
		Reach:                       ParseWhole(row["Alcance"]),
		Frequency:                   ParseDecimal(row["Frecuencia"]),
		LandingPageViews:            ParseDecimal(row["Visitas a la página de destino"]),
		CPM:                         ParseDecimal(row["CPM (costo por mil impresiones)"]),
		CTRAll:                      ParseDecimal(row["CTR (todos)"]),
		CPCAll:                      ParseDecimal(row["CPC (todos)"]),
		VideoPlays3s:                ParseDecimal(row["Reproducciones de video de 3 segundos"]),
		CheckoutsInitiated:          ParseDecimal(row["Pagos iniciados"]),
		PurchaseRate:                ParseDecimal(row["Porcentaje de compras por visitas a la página de destino"]),
		PageLikes:                   ParseDecimal(row["Me gusta en Facebook"]),
		AddsToCart:                  ParseDecimal(row["Artículos agregados al carrito"]),
		CheckoutsInitiatedOnWebsite: ParseDecimal(row["Pagos iniciados en el sitio web"]),
		CampaignBudget:              row["Presupuesto de la campaña"],
		CampaignBudgetType:          row["Tipo de presupuesto de la campaña"],
		IncludedCustomAudiences:     row["Públicos personalizados incluidos"],
		ExcludedCustomAudiences:     row["Públicos personalizados excluidos"],
		LinkClicks:                  ParseWhole(row["Clics en el enlace"]),
		PaymentInfoAdds:             ParseDecimal(row["Información de pago agregada"]),
		PageEngagement:              ParseDecimal(row["Interacción con la página"]),
		PostComments:                ParseDecimal(row["Comentarios de publicaciones"]),
		PostInteractions:            ParseDecimal(row["Interacciones con la publicación"]),
		PostReactions:               ParseDecimal(row["Reacciones a publicaciones"]),
		PostShares:                  ParseDecimal(row["Veces que se compartieron las publicaciones"]),
		Bid:                         row["Puja"],
		BidType:                     row["Tipo de puja"],
		WebsiteURL:                  row["URL del sitio web"],
		CTRLink:                     ParseDecimal(row["CTR (porcentaje de clics en el enlace)"]),
		Objective:                   row["Objetivo"],
		PurchaseType:                row["Tipo de compra"],
		ReportStart:                 row[ColReportStart],
		ReportEnd:                   row[ColReportEnd],
		Attention:                   ParseDecimal(row["Atencion"]),
		Desire:                      ParseDecimal(row["Deseo"]),
		Interest:                    ParseDecimal(row["Interes"]),
		VideoPlays25Percent:         ParseDecimal(row["Reproducciones de video hasta el 25%"]),
		VideoPlays50Percent:         ParseDecimal(row["Reproducciones de video hasta el 50%"]),
		VideoPlays75Percent:         ParseDecimal(row["Reproducciones de video hasta el 75%"]),
		VideoPlays95Percent:         ParseDecimal(row["Reproducciones de video hasta el 95%"]),
		VideoPlays100Percent:        ParseDecimal(row["Reproducciones de video hasta el 100%"]),
		VideoPlayRate3s:             ParseDecimal(row["Porcentaje de reproducciones de video de 3 segundos por impresiones"]),
		AOV:                         ParseDecimal(row["AOV"]),
		LPViewRate:                  ParseDecimal(row["LP View Rate"]),
		AdcToLpv:                    ParseDecimal(row["ADC – LPV"]),
		VideoCapture:                row["Captura de Video"],
		LandingConversionRate:       ParseDecimal(row["Tasa de conversión de Landing"]),
		PercentPurchases:            ParseDecimal(row["% Compras"]),
		Visualizations:              ParseDecimal(row["Visualizaciones"]),
		ImageID:                     row["Identificador de la imagen"],
		ImageName:                   row["Nombre de la imagen"],
		CVRLinkClick:                ParseDecimal(row["CVR(Link Click)"]),
		VideoRetentionProprietary:   ParseDecimal(row["Retencion Video"]),
		VideoRetentionMeta:          ParseDecimal(row["Retención de video"]),
		VideoAveragePlayTime:        ParseDecimal(row["Tiempo promedio de reproducción del video"]),
		ThruPlays:                   ParseDecimal(row["ThruPlays"]),
		VideoPlays:                  ParseDecimal(row["Reproducciones de video"]),
		VideoPlays2sContinuousUniq:  ParseDecimal(row["Reproducciones de video continuas de 2 segundos únicas"]),
		CTRUniqueLink:               ParseDecimal(row["CTR único (porcentaje de clics en el enlace)"]),
	}
	if rec.Currency == "" {
		rec.Currency = defaultCurrency
	}
	rec.UniqueID = domain.BuildUniqueID(rec.CampaignName, rec.AdSetName, rec.AdName, rec.Day)
	return rec
}

// spendCell prefers the EUR column and falls back to any other currency's spend column.
func spendCell(row domain.RawRow) string {
	if v, ok := row[ColSpend]; ok {
		return v
	}
	for k, v := range row {
		if strings.HasPrefix(k, ColSpendPrefix) {
			return v
		}
	}
	return ""
}

// ParseDecimal reads a European-formatted number: dots group thousands and a
// comma marks the decimals. Trailing text such as a percent sign is ignored.
// Unreadable input is 0.
func ParseDecimal(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(numericPrefix(s, true), 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseWhole reads the integer part of a European-formatted number.
func ParseWhole(s string) int64 {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ".", "")
	n, err := strconv.ParseInt(numericPrefix(s, false), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// numericPrefix returns the leading signed number in s.
func numericPrefix(s string, decimal bool) string {
	end := 0
	var prev rune
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case (r == '-' || r == '+') && (i == 0 || (decimal && (prev == 'e' || prev == 'E'))):
		case r == '.' && decimal:
		case (r == 'e' || r == 'E') && decimal && i > 0:
		default:
			return strings.TrimRight(s[:end], "eE+-")
		}
		end = i + 1
		prev = r
	}
	return strings.TrimRight(s[:end], "eE+-")
}
