package korail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dhgwag/korail-reservation/models"
)

const (
	mobilePrefix = "/classes/com.korail.mobile"
	loginPath    = mobilePrefix + ".login.Login"
	searchPath   = mobilePrefix + ".seatMovie.ScheduleView"
	reservePath  = mobilePrefix + ".certification.TicketReservation"

	device     = "AD"
	appVersion = "231231001"
	userAgent  = "Dalvik/2.1.0 (Linux; U; Android 5.1.1; Nexus 4 Build/LMY48T)"

	// seat availability code meaning "bookable"
	seatAvailable = "11"
)

var trainTypeCodes = map[models.TrainType]string{
	models.TrainTypeKTX:       "100",
	models.TrainTypeMugunghwa: "102",
	models.TrainTypeAll:       "109",
}

var phonePattern = regexp.MustCompile(`^\d{3}-\d{3,4}-\d{4}$`)

// Client talks to the Korail mobile API. A Client holds one login session
// and is not safe for concurrent use.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Limiter *rate.Limiter
	Adults  int

	key string
	now func() time.Time
}

// NewClient creates a client with a cookie jar and a request rate limit
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64, adults int) *Client {
	jar, _ := cookiejar.New(nil)
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	if adults < 1 {
		adults = 1
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout, Jar: jar},
		Limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		Adults:  adults,
		now:     time.Now,
	}
}

type envelope struct {
	Result  string `json:"strResult"`
	MsgCode string `json:"h_msg_cd"`
	MsgText string `json:"h_msg_txt"`
}

type loginResponse struct {
	envelope
	Key      string `json:"Key"`
	Name     string `json:"strCustNm"`
	MemberNo string `json:"strMbCrdNo"`
}

type trainInfo struct {
	TrainNo        string `json:"h_trn_no"`
	TrainTypeCode  string `json:"h_trn_clsf_cd"`
	TrainTypeName  string `json:"h_trn_clsf_nm"`
	TrainGroup     string `json:"h_trn_gp_cd"`
	DepStation     string `json:"h_dpt_rs_stn_nm"`
	DepStationCode string `json:"h_dpt_rs_stn_cd"`
	ArrStation     string `json:"h_arv_rs_stn_nm"`
	ArrStationCode string `json:"h_arv_rs_stn_cd"`
	DepDate        string `json:"h_dpt_dt"`
	DepTime        string `json:"h_dpt_tm"`
	ArrDate        string `json:"h_arv_dt"`
	ArrTime        string `json:"h_arv_tm"`
	RunDate        string `json:"h_run_dt"`
	GeneralSeat    string `json:"h_gen_rsv_cd"`
	SpecialSeat    string `json:"h_spe_rsv_cd"`
}

type searchResponse struct {
	envelope
	Trains struct {
		Train []trainInfo `json:"trn_info"`
	} `json:"trn_infos"`
}

type reserveResponse struct {
	envelope
	PNR string `json:"h_pnr_no"`
}

// Login authenticates and stores the session key. Every failure wraps ErrAuth
// and leaves the previous session key in place.
func (c *Client) Login(ctx context.Context, id, password string) error {
	form := c.baseForm()
	form.Set("txtInputFlg", inputFlag(id))
	form.Set("txtMemberNo", id)
	form.Set("txtPwd", password)

	var resp loginResponse
	if err := c.post(ctx, loginPath, form, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if resp.Result != "SUCC" || resp.Key == "" {
		return fmt.Errorf("%w: unexpected login result %q", ErrAuth, resp.Result)
	}
	c.key = resp.Key
	return nil
}

// Search returns the trains for a criterion in provider order, sold-out
// trains included. An empty result is returned as ErrNoResults by the
// provider.
func (c *Client) Search(ctx context.Context, q models.SearchCriterion) ([]models.TrainOffer, error) {
	code, ok := trainTypeCodes[q.TrainType]
	if !ok {
		code = trainTypeCodes[models.TrainTypeKTX]
	}
	depTime := q.DepTime
	if depTime == "" {
		depTime = models.DefaultDepTime
	}

	form := c.baseForm()
	form.Set("radJobId", "1")
	form.Set("selGoTrain", code)
	form.Set("txtCardPsgCnt", "0")
	form.Set("txtGdNo", "")
	form.Set("txtGoAbrdDt", q.DepDate)
	form.Set("txtGoEnd", q.ArrStation)
	form.Set("txtGoHour", depTime)
	form.Set("txtGoStart", q.DepStation)
	form.Set("txtJobDv", "")
	form.Set("txtMenuId", "11")
	form.Set("txtPsgFlg_1", strconv.Itoa(c.Adults))
	form.Set("txtPsgFlg_2", "0")
	form.Set("txtPsgFlg_3", "0")
	form.Set("txtPsgFlg_4", "0")
	form.Set("txtPsgFlg_5", "0")
	form.Set("txtSeatAttCd_2", "000")
	form.Set("txtSeatAttCd_3", "000")
	form.Set("txtSeatAttCd_4", "015")
	form.Set("txtTrnGpCd", code)

	var resp searchResponse
	if err := c.post(ctx, searchPath, form, &resp); err != nil {
		return nil, err
	}

	offers := make([]models.TrainOffer, 0, len(resp.Trains.Train))
	for _, info := range resp.Trains.Train {
		offers = append(offers, info.offer())
	}
	return offers, nil
}

// Reserve holds seats on a train. The seat class is chosen from the option
// and the offer's availability; when the option cannot be met ErrSoldOut is
// returned without calling the provider.
func (c *Client) Reserve(ctx context.Context, t models.TrainOffer, opt models.ReserveOption) (models.Reservation, error) {
	if c.key == "" {
		return models.Reservation{}, &APIError{Code: codeNeedToLogin, Message: "Need to Login"}
	}
	class, err := chooseSeatClass(t, opt)
	if err != nil {
		return models.Reservation{}, err
	}
	roomClass := "1"
	if class == models.SeatSpecial {
		roomClass = "2"
	}

	form := c.baseForm()
	form.Set("Key", c.key)
	form.Set("txtGdNo", "")
	form.Set("txtJobId", "1101")
	form.Set("txtTotPsgCnt", strconv.Itoa(c.Adults))
	form.Set("txtSeatAttCd1", "000")
	form.Set("txtSeatAttCd2", "000")
	form.Set("txtSeatAttCd3", "000")
	form.Set("txtSeatAttCd4", "015")
	form.Set("txtSeatAttCd5", "000")
	form.Set("hidFreeFlg", "N")
	form.Set("txtStndFlg", "N")
	form.Set("txtMenuId", "11")
	form.Set("txtSrcarCnt", "0")
	form.Set("txtJrnyCnt", "1")
	form.Set("txtJrnySqno1", "001")
	form.Set("txtJrnyTpCd1", "11")
	form.Set("txtDptDt1", t.DepDate)
	form.Set("txtDptRsStnCd1", t.DepStationCode)
	form.Set("txtDptTm1", t.DepTime)
	form.Set("txtArvRsStnCd1", t.ArrStationCode)
	form.Set("txtTrnNo1", t.TrainNo)
	form.Set("txtRunDt1", t.RunDate)
	form.Set("txtTrnClsfCd1", t.TrainTypeCode)
	form.Set("txtPsrmClCd1", roomClass)
	form.Set("txtTrnGpCd1", t.TrainGroup)
	form.Set("txtChgFlg1", "")
	// one adult passenger group
	form.Set("txtPsgTpCd1", "1")
	form.Set("txtDiscKndCd1", "000")
	form.Set("txtCompaCnt1", strconv.Itoa(c.Adults))
	form.Set("txtCardCode_1", "")
	form.Set("txtCardNo_1", "")
	form.Set("txtCardPw_1", "")

	var resp reserveResponse
	if err := c.post(ctx, reservePath, form, &resp); err != nil {
		return models.Reservation{}, err
	}
	return models.Reservation{
		ID:         resp.PNR,
		Train:      t,
		SeatClass:  class,
		Passengers: c.Adults,
		ReservedAt: c.now(),
	}, nil
}

func chooseSeatClass(t models.TrainOffer, opt models.ReserveOption) (models.SeatType, error) {
	switch opt {
	case models.GeneralOnly:
		if t.GeneralSeats {
			return models.SeatGeneral, nil
		}
	case models.SpecialOnly:
		if t.SpecialSeats {
			return models.SeatSpecial, nil
		}
	case models.SpecialFirst:
		if t.SpecialSeats {
			return models.SeatSpecial, nil
		}
		if t.GeneralSeats {
			return models.SeatGeneral, nil
		}
	default:
		if t.GeneralSeats {
			return models.SeatGeneral, nil
		}
		if t.SpecialSeats {
			return models.SeatSpecial, nil
		}
	}
	return "", fmt.Errorf("%w: no seat for option %s", ErrSoldOut, opt)
}

func (c *Client) baseForm() url.Values {
	form := url.Values{}
	form.Set("Device", device)
	form.Set("Version", appVersion)
	return form
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("korail request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read korail response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("korail request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode korail response: %w", err)
	}
	if env.Result == "FAIL" {
		return &APIError{Code: env.MsgCode, Message: env.MsgText}
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(out); err != nil {
		return fmt.Errorf("decode korail response: %w", err)
	}
	return nil
}

func (t trainInfo) offer() models.TrainOffer {
	return models.TrainOffer{
		TrainNo:        t.TrainNo,
		TrainType:      t.TrainTypeName,
		TrainTypeCode:  t.TrainTypeCode,
		TrainGroup:     t.TrainGroup,
		DepStation:     t.DepStation,
		DepStationCode: t.DepStationCode,
		ArrStation:     t.ArrStation,
		ArrStationCode: t.ArrStationCode,
		DepDate:        t.DepDate,
		DepTime:        t.DepTime,
		ArrDate:        t.ArrDate,
		ArrTime:        t.ArrTime,
		RunDate:        t.RunDate,
		GeneralSeats:   t.GeneralSeat == seatAvailable,
		SpecialSeats:   t.SpecialSeat == seatAvailable,
	}
}

// inputFlag tells the provider which kind of member id is used
func inputFlag(id string) string {
	switch {
	case strings.Contains(id, "@"):
		return "5"
	case phonePattern.MatchString(id):
		return "4"
	}
	return "2"
}
